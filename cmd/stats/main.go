package stats

import (
	"fmt"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"

	"github.com/streamstore/streamstore/frontend/client"
)

const (
	usage   = "stats"
	short   = "Show the internal stats of a topic"
	long    = "This command reports segment and entry counts of a topic, including its compacted view"
	example = "streamstore stats --url http://localhost:5993 --topic orders"
)

var (
	// Cmd is the stats command.
	Cmd = &cobra.Command{
		Use:     usage,
		Short:   short,
		Long:    long,
		Example: example,
		RunE:    executeStats,
	}
	url   string
	topic string
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	Cmd.Flags().StringVarP(&url, "url", "u", "http://localhost:5993", "streamstore server base URL")
	Cmd.Flags().StringVarP(&topic, "topic", "t", "", "topic to inspect")
	Cmd.MarkFlagRequired("topic")
}

func executeStats(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cl, err := client.NewClient(url)
	if err != nil {
		return err
	}
	st, err := cl.GetInternalStats(topic)
	if err != nil {
		return err
	}

	fmt.Printf("topic:              %s\n", st.Topic)
	fmt.Printf("end offset:         %d\n", st.EndOffset)
	fmt.Printf("segments:           %d\n", st.Segments)
	fmt.Printf("raw entries:        %d\n", st.RawEntries)
	fmt.Printf("raw size:           %s\n", bytefmt.ByteSize(uint64(st.RawBytes)))
	if st.CompactedID != 0 {
		fmt.Printf("compacted boundary: %d\n", st.CompactedBoundary)
		fmt.Printf("compacted entries:  %d\n", st.CompactedEntries)
	} else {
		fmt.Println("compacted:          never")
	}
	return nil
}
