// Package memorizecmder provides the memorize command, which extracts
// long-term memories from a conversation transcript.
package memorizecmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/cmd/mnemo/boot"
	"github.com/papercomputeco/mnemo/pkg/cliui"
	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/llm"
)

type memorizeCommander struct {
	agentID string
	path    string
	jsonOut bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

const memorizeLongDesc string = `Memorize a conversation transcript.

The transcript is a JSON array of messages (or an object with a "messages"
array). Each message has a role and content, where content is either a
string or an array of content blocks. Pass "-" to read from stdin.

The chat model extracts durable facts from the conversation; each fact is
stored as a memory item (or reinforces an identical existing one) and the
summaries of the categories it belongs to are refreshed.

Examples:
  mnemo memorize --agent alice transcript.json
  cat transcript.json | mnemo memorize --agent alice -
  mnemo memorize --agent alice transcript.json --json`

const memorizeShortDesc string = "Extract memories from a conversation"

func NewMemorizeCmd() *cobra.Command {
	cmder := &memorizeCommander{}

	cmd := &cobra.Command{
		Use:   "memorize <transcript.json>",
		Short: memorizeShortDesc,
		Long:  memorizeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.path = args[0]
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			rt, err := boot.Load(cmd, boot.EngineFlags)
			if err != nil {
				return err
			}
			defer rt.Close()

			return cmder.run(cmd.Context(), rt.Engine)
		},
	}

	boot.AddAgentFlag(cmd, &cmder.agentID)
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the result as JSON")
	boot.AddFlags(cmd, boot.EngineFlags)

	return cmd
}

func (c *memorizeCommander) run(ctx context.Context, eng *engine.Engine) error {
	transcript, err := c.readTranscript()
	if err != nil {
		return err
	}

	var result *engine.MemorizeResult
	err = cliui.Step(c.errOut, fmt.Sprintf("Memorizing %d messages", len(transcript)), func() error {
		var err error
		result, err = eng.Memorize(ctx, c.agentID, transcript)
		return err
	})
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result == nil {
		fmt.Fprintln(c.out, "No memories extracted.")
		return nil
	}

	fmt.Fprintf(c.out, "Memorized %d items (%d reinforced), updated %d categories.\n",
		result.ItemsCount, result.Reinforced, result.CategoriesUpdated)
	return nil
}

func (c *memorizeCommander) readTranscript() ([]llm.Message, error) {
	var (
		data []byte
		err  error
	)
	if c.path == "-" {
		data, err = io.ReadAll(c.in)
	} else {
		data, err = os.ReadFile(c.path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	return ParseTranscript(data)
}

// ParseTranscript decodes a JSON array of messages, or an object carrying
// one under "messages".
func ParseTranscript(data []byte) ([]llm.Message, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, errors.New("transcript is empty")
	}

	var msgs []llm.Message
	if strings.HasPrefix(trimmed, "{") {
		var wrapped struct {
			Messages []llm.Message `json:"messages"`
		}
		if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil {
			return nil, fmt.Errorf("parsing transcript: %w", err)
		}
		msgs = wrapped.Messages
	} else if err := json.Unmarshal([]byte(trimmed), &msgs); err != nil {
		return nil, fmt.Errorf("parsing transcript: %w", err)
	}

	return msgs, nil
}
