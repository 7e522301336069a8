package frontend

import (
	"errors"
	"net/http"
	"time"

	rpc "github.com/alpacahq/rpc/rpc2"
	"github.com/alpacahq/rpc/rpc2/json2"

	"github.com/streamstore/streamstore/catalog"
	"github.com/streamstore/streamstore/executor"
	"github.com/streamstore/streamstore/metrics"
	"github.com/streamstore/streamstore/utils"
	"github.com/streamstore/streamstore/utils/log"
	"github.com/streamstore/streamstore/utils/rpc/msgpack2"
)

// Queryable gates the read path; flipped off during shutdown.
var Queryable uint32

var (
	queryableError = errors.New("server is not queryable")
	argsNilError   = errors.New("arguments are nil, can not serve nil arguments")
)

// DataService is the RPC surface of the store: write, read,
// compaction and introspection of topic logs.
type DataService struct {
	catalogDir *catalog.Directory
	exec       *executor.Executor
	enableAdd  bool
}

func NewDataService(enableAdd bool, catDir *catalog.Directory, exec *executor.Executor) *DataService {
	return &DataService{
		catalogDir: catDir,
		exec:       exec,
		enableAdd:  enableAdd,
	}
}

func (s *DataService) Init() {}

type RpcServer struct {
	*rpc.Server
}

func (s *RpcServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	w.Header().Set("streamstore-version", utils.GitHash)
	s.Server.ServeHTTP(w, r)
	metrics.RPCTotalRequestsTotal.Inc()
	metrics.RPCTotalRequestDuration.Observe(time.Since(start).Seconds())
}

func NewServer(enableAdd bool, catDir *catalog.Directory, exec *executor.Executor,
) (*RpcServer, *DataService) {
	s := &RpcServer{
		Server: rpc.NewServer(),
	}
	s.RegisterCodec(json2.NewCodec(), "application/json")
	s.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")
	s.RegisterCodec(msgpack2.NewCodec(), "application/x-msgpack")
	service := NewDataService(enableAdd, catDir, exec)
	service.Init()
	err := s.RegisterService(service, "")
	if err != nil {
		log.Error("Failed to register service - Error: %v", err)
	}
	return s, service
}
