package compact

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streamstore/streamstore/frontend/client"
)

const (
	usage   = "compact"
	short   = "Run compaction for a topic"
	long    = "This command triggers one compaction run for a topic and waits for it to publish"
	example = "streamstore compact --url http://localhost:5993 --topic orders"
)

var (
	// Cmd is the compact command.
	Cmd = &cobra.Command{
		Use:     usage,
		Short:   short,
		Long:    long,
		Example: example,
		RunE:    executeCompact,
	}
	url   string
	topic string
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	Cmd.Flags().StringVarP(&url, "url", "u", "http://localhost:5993", "streamstore server base URL")
	Cmd.Flags().StringVarP(&topic, "topic", "t", "", "topic to compact")
	Cmd.MarkFlagRequired("topic")
}

func executeCompact(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cl, err := client.NewClient(url)
	if err != nil {
		return err
	}
	resp, err := cl.Compact(topic)
	if err != nil {
		return err
	}

	fmt.Printf("compacted %s: boundary=%d entries=%d\n", topic, resp.Boundary, resp.Entries)
	return nil
}
