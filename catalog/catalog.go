package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gobwas/glob"

	"github.com/streamstore/streamstore/ledger"
	"github.com/streamstore/streamstore/utils/log"
)

/*
	Directory is the catalog of topics under the server's root
	directory. Each topic is a subdirectory holding its raw segments
	plus a compacted/ subdirectory owned by the compactor. Topics are
	discovered at startup and created on demand when adds are enabled.
*/
type Directory struct {
	sync.RWMutex

	rootDir string
	opts    ledger.Options
	topics  map[string]*Topic
}

// NewDirectory scans rootPath for existing topic directories and
// opens each one, recovering its end offset and compacted pointer.
func NewDirectory(rootPath string, opts ledger.Options) (*Directory, error) {
	if err := os.MkdirAll(rootPath, 0o770); err != nil {
		return nil, UnableToCreateRoot(rootPath + ": " + err.Error())
	}

	d := &Directory{
		rootDir: rootPath,
		opts:    opts,
		topics:  map[string]*Topic{},
	}

	dirlist, err := os.ReadDir(rootPath)
	if err != nil {
		return nil, UnableToCreateRoot(rootPath + ": " + err.Error())
	}
	for _, f := range dirlist {
		if !f.IsDir() {
			continue
		}
		t, err := openTopic(f.Name(), filepath.Join(rootPath, f.Name()), opts)
		if err != nil {
			return nil, err
		}
		d.topics[f.Name()] = t
		log.Debug("catalog: loaded topic %s (end offset %d)", f.Name(), t.Log.EndOffset())
	}

	return d, nil
}

// GetTopic returns an already-open topic.
func (d *Directory) GetTopic(name string) (*Topic, error) {
	d.RLock()
	defer d.RUnlock()
	t, ok := d.topics[name]
	if !ok {
		return nil, TopicNotFound(name)
	}
	return t, nil
}

// GetOrCreateTopic returns the named topic, creating its directory on
// first use.
func (d *Directory) GetOrCreateTopic(name string) (*Topic, error) {
	d.RLock()
	t, ok := d.topics[name]
	d.RUnlock()
	if ok {
		return t, nil
	}

	if name == "" || name != filepath.Base(name) || name[0] == '.' {
		return nil, InvalidTopicName(name)
	}

	d.Lock()
	defer d.Unlock()
	if t, ok := d.topics[name]; ok {
		return t, nil
	}
	t, err := openTopic(name, filepath.Join(d.rootDir, name), d.opts)
	if err != nil {
		return nil, err
	}
	d.topics[name] = t
	log.Info("catalog: created topic %s", name)
	return t, nil
}

// ListTopics returns the topic names matching pattern (glob syntax,
// empty matches everything), sorted.
func (d *Directory) ListTopics(pattern string) ([]string, error) {
	var g glob.Glob
	if pattern != "" {
		var err error
		g, err = glob.Compile(pattern)
		if err != nil {
			return nil, InvalidTopicName(pattern + ": " + err.Error())
		}
	}

	d.RLock()
	defer d.RUnlock()
	names := make([]string, 0, len(d.topics))
	for name := range d.topics {
		if g == nil || g.Match(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close releases every topic's file handles.
func (d *Directory) Close() {
	d.Lock()
	defer d.Unlock()
	for name, t := range d.topics {
		if err := t.Log.Close(); err != nil {
			log.Error("catalog: close topic %s: %v", name, err)
		}
	}
}
