// Command jbeamsync synchronizes JBeam part files with editor geometry
// snapshots from the command line: validate and inspect part files, apply a
// snapshot as a minimal text edit, or watch a file for external changes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbeamtools/jbeamsync"
	"github.com/jbeamtools/jbeamsync/sjson"
)

var (
	flagConfig  string
	flagDebug   bool
	flagWrite   bool
	flagDiff    bool
	flagSnap    string
	flagModel   string
	flagConfirm string
)

func main() {
	root := &cobra.Command{
		Use:           "jbeamsync",
		Short:         "Format-preserving JBeam part file synchronizer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "jbeamsync.yaml", "config file path")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug file logging")

	check := &cobra.Command{
		Use:   "check <file>",
		Short: "Parse a part file and verify byte-identical round-trip",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}

	inspect := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Dump the geometry tables the engine parses, in file order",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}

	sync := &cobra.Command{
		Use:   "sync <file>",
		Short: "Apply a geometry snapshot to a part file as a minimal edit",
		Args:  cobra.ExactArgs(1),
		RunE:  runSync,
	}
	sync.Flags().StringVar(&flagSnap, "snapshot", "", "geometry snapshot JSON file (required)")
	sync.Flags().StringVar(&flagModel, "model", "", "optional RFC-6902 patch applied to the value tree first")
	sync.Flags().BoolVar(&flagWrite, "write", false, "write the result back instead of printing it")
	sync.Flags().BoolVar(&flagDiff, "diff", false, "print a line diff of the change")
	sync.Flags().StringVar(&flagConfirm, "confirm", "", "resolve duplicate-position collisions: delete or cancel")
	_ = sync.MarkFlagRequired("snapshot")

	watch := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-validate a part file whenever it changes on disk",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}

	initConfig := &cobra.Command{
		Use:   "init-config",
		Short: "Write a starter config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := jbeamsync.WriteDefaultConfig(flagConfig); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", flagConfig)
			return nil
		},
	}

	root.AddCommand(check, inspect, sync, watch, initConfig)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "jbeamsync:", err)
		os.Exit(1)
	}
}

func newContext() (*jbeamsync.EditorContext, func(), error) {
	cfg, err := jbeamsync.LoadConfig(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	if flagDebug {
		cfg.Debug = true
	}
	fl, err := jbeamsync.NewFileLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	return jbeamsync.NewEditorContext(cfg, fl.Logger), func() { _ = fl.Close() }, nil
}

func loadFile(ec *jbeamsync.EditorContext, path string) ([]byte, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ec.Load(text); err != nil {
		return nil, err
	}
	return text, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	text, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	doc, err := sjson.Parse(text)
	if err != nil {
		return err
	}
	if out := doc.Marshal(); string(out) != string(text) {
		return fmt.Errorf("round trip not byte-identical for %s", args[0])
	}
	fmt.Printf("%s: ok (%d tokens)\n", args[0], len(doc.Tokens))
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	ec, closeLog, err := newContext()
	if err != nil {
		return err
	}
	defer closeLog()
	if _, err := loadFile(ec, args[0]); err != nil {
		return err
	}
	out, err := jbeamsync.InspectYAML(ec.OriginalData())
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func runSync(cmd *cobra.Command, args []string) error {
	ec, closeLog, err := newContext()
	if err != nil {
		return err
	}
	defer closeLog()
	before, err := loadFile(ec, args[0])
	if err != nil {
		return err
	}

	snapData, err := os.ReadFile(flagSnap)
	if err != nil {
		return err
	}
	snap, err := jbeamsync.DecodeSnapshot(snapData)
	if err != nil {
		return err
	}

	var current sjson.Value
	if flagModel != "" {
		patch, err := os.ReadFile(flagModel)
		if err != nil {
			return err
		}
		doc, err := sjson.Parse(before)
		if err != nil {
			return err
		}
		tree, err := doc.Decode()
		if err != nil {
			return err
		}
		if current, err = jbeamsync.ApplyModelPatchBytes(tree, patch); err != nil {
			return err
		}
	}

	res, err := ec.ExportCycle(snap, current)
	if err != nil {
		return err
	}
	if res.Pending() {
		for _, c := range res.Collisions {
			fmt.Fprintf(os.Stderr, "collision: new vertex %s at %s sits on existing node %q (part %s)\n",
				c.DisplayName, c.Pos, c.ExistingID, c.Part)
		}
		switch flagConfirm {
		case "delete":
			res, err = ec.Resolve(jbeamsync.DecisionDelete)
		case "cancel":
			res, err = ec.Resolve(jbeamsync.DecisionCancel)
		case "":
			return fmt.Errorf("duplicate positions need --confirm delete or --confirm cancel")
		default:
			return fmt.Errorf("unknown --confirm value %q", flagConfirm)
		}
		if err != nil {
			return err
		}
	}

	if flagDiff {
		fmt.Print(jbeamsync.DiffText(string(before), string(res.Text)))
	}
	for editorID, durable := range res.AssignedIDs {
		fmt.Fprintf(os.Stderr, "assigned: %s -> %s\n", editorID, durable)
	}
	if !flagWrite {
		if !flagDiff {
			_, err = os.Stdout.Write(res.Text)
		}
		return err
	}
	if !res.Changed {
		fmt.Fprintln(os.Stderr, "no changes")
		return nil
	}
	return os.WriteFile(args[0], res.Text, 0o644)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ec, closeLog, err := newContext()
	if err != nil {
		return err
	}
	defer closeLog()

	reload := func() {
		if _, err := loadFile(ec, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
			return
		}
		od := ec.OriginalData()
		fmt.Printf("%s: reloaded, %d part(s)\n", args[0], len(od.PartOrder))
	}
	reload()

	w, err := jbeamsync.WatchFile(args[0], 0, reload, nil)
	if err != nil {
		return err
	}
	defer w.Close()

	select {} // watch until interrupted
}
