// Command notations-check validates a state snapshot against the built-in
// integrity rules and reports any violations. With no -file argument it
// checks the snapshot held by the store configured through the environment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"notations/internal/core"
	"notations/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("notations-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "path to a snapshot JSON file (default: the configured store)")
	strict := fs.Bool("strict", false, "fail on non-blocking violations too")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	snapshot, err := loadSnapshot(*file)
	if err != nil {
		fmt.Fprintf(stderr, "notations-check: %v\n", err)
		return 2
	}

	engine := core.NewDefaultRulesEngine()
	res, err := engine.Evaluate(context.Background(), snapshotView{snap: snapshot}, nil)
	if err != nil {
		fmt.Fprintf(stderr, "notations-check: evaluate: %v\n", err)
		return 2
	}

	for _, v := range res.Violations {
		fmt.Fprintf(stdout, "%s %s: %s\n", v.Severity, v.Rule, v.Message)
	}
	if res.HasBlocking() || (*strict && len(res.Violations) > 0) {
		return 1
	}
	fmt.Fprintf(stdout, "ok: %d stacks, %d sheets\n", len(snapshot.Stacks), len(snapshot.Sheets))
	return 0
}

func loadSnapshot(file string) (domain.Snapshot, error) {
	if file == "" {
		// An empty engine here: the point is to report violations, not to
		// have them block the load.
		store, err := core.OpenPersistentStore(domain.NewRulesEngine())
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("open store: %w", err)
		}
		return store.ExportState(), nil
	}
	payload, err := os.ReadFile(file)
	if err != nil {
		return domain.Snapshot{}, err
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode %s: %w", file, err)
	}
	return snapshot, nil
}

// snapshotView adapts a raw snapshot to the rule evaluation interface
// without normalizing it first; the point is to inspect the state as stored.
type snapshotView struct {
	snap domain.Snapshot
}

func (v snapshotView) RootID() string { return v.snap.RootID }

func (v snapshotView) FindStack(id string) (domain.Stack, bool) {
	st, ok := v.snap.Stacks[id]
	return st, ok
}

func (v snapshotView) FindSheet(id string) (domain.Sheet, bool) {
	sh, ok := v.snap.Sheets[id]
	return sh, ok
}

func (v snapshotView) ListStacks() []domain.Stack {
	out := make([]domain.Stack, 0, len(v.snap.Stacks))
	for _, st := range v.snap.Stacks {
		out = append(out, st)
	}
	return out
}

func (v snapshotView) ListSheets() []domain.Sheet {
	out := make([]domain.Sheet, 0, len(v.snap.Sheets))
	for _, sh := range v.snap.Sheets {
		out = append(out, sh)
	}
	return out
}
