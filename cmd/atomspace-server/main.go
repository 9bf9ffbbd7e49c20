// Command atomspace-server is a thin process bootstrap around the in-memory
// AtomStore and the query pipeline. It contains no core logic: flag
// parsing, env loading and logger construction are exactly the "external
// collaborators" spec.md §1 places out of scope for the core, wired here
// the way the teacher pack's cobra-based command binaries do (e.g.
// cmd/synnergy/main.go).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/das-systems/das-core/atom"
	"github.com/das-systems/das-core/atomstore"
	"github.com/das-systems/das-core/internal/config"
	"github.com/das-systems/das-core/internal/logging"
	"github.com/das-systems/das-core/query"
	"github.com/das-systems/das-core/query/lang"
)

func main() {
	var envFile, contextName string

	root := &cobra.Command{
		Use:   "atomspace-server",
		Short: "run an in-memory distributed atomspace store",
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file to load")
	root.PersistentFlags().StringVar(&contextName, "context", "", "atomspace context name (empty = global)")

	root.AddCommand(queryCmd(&envFile, &contextName))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// queryCmd demonstrates the store + pipeline wiring end to end: it seeds a
// handful of atoms, parses a query token stream (spec.md §6.2) off argv,
// and prints every answer's token form (§6.1).
func queryCmd(envFile, contextName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "query [tokens...]",
		Short: "run a LINK_TEMPLATE/AND/OR query against a freshly seeded store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			log := logging.New(logging.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})

			store := atomstore.New(*contextName, log)
			if err := seedDemoAtoms(store); err != nil {
				return fmt.Errorf("seeding atoms: %w", err)
			}

			tokens := lang.Tokenize(joinArgs(args))
			src, err := lang.Parse(tokens, store, noopImportance{}, *contextName)
			if err != nil {
				return fmt.Errorf("parsing query: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			it := query.NewIterator(src)
			if err := it.Run(ctx); err != nil {
				return err
			}
			for !it.Finished() {
				if answer, ok := it.Pop(); ok {
					tok, err := answer.Tokenize()
					if err != nil {
						return err
					}
					fmt.Println(tok)
					continue
				}
				time.Sleep(time.Millisecond)
			}
			return nil
		},
	}
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

// noopImportance ranks every candidate equally; a real deployment wires
// attention.Service (see cmd/attention-broker) as the ImportanceSource
// instead.
type noopImportance struct{}

func (noopImportance) GetImportance(_ string, handles []string) ([]float64, error) {
	out := make([]float64, len(handles))
	return out, nil
}

func seedDemoAtoms(store *atomstore.Store) error {
	similarity, err := atom.NewNode("Symbol", "Similarity", nil)
	if err != nil {
		return err
	}
	human, err := atom.NewNode("Symbol", "\"human\"", nil)
	if err != nil {
		return err
	}
	monkey, err := atom.NewNode("Symbol", "\"monkey\"", nil)
	if err != nil {
		return err
	}
	for _, n := range []*atom.Node{similarity, human, monkey} {
		if _, err := store.AddNode(n, false); err != nil {
			return err
		}
	}
	link, err := atom.NewLink("Expression", []string{similarity.Handle(), human.Handle(), monkey.Handle()}, nil)
	if err != nil {
		return err
	}
	_, err = store.AddLink(link, false)
	return err
}
