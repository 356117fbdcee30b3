package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"

	"layerlab/internal/activation"
	"layerlab/internal/model"
	"layerlab/internal/session"
	"layerlab/internal/storage"
	api "layerlab/pkg/layerlab"
)

func main() {
	err := run(context.Background(), os.Args[1:])
	klog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "create":
		return runCreate(ctx, args[1:])
	case "list":
		return runList(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "edit":
		return runEdit(ctx, args[1:])
	case "delete":
		return runDelete(ctx, args[1:])
	case "layout":
		return runLayout(ctx, args[1:])
	case "edges":
		return runEdges(ctx, args[1:])
	case "plan":
		return runPlan(ctx, args[1:])
	case "scene":
		return runScene(ctx, args[1:])
	case "record-epoch":
		return runRecordEpoch(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "activations":
		return runActivations(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type commonFlags struct {
	storeKind  *string
	dbPath     *string
	configPath *string
	jsonOut    *bool
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	klog.InitFlags(fs)
	return fs, &commonFlags{
		storeKind:  fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:     fs.String("db-path", "layerlab.db", "sqlite database path"),
		configPath: fs.String("config", "", "optional JSON session config"),
		jsonOut:    fs.Bool("json", false, "emit JSON"),
	}
}

func (c *commonFlags) client(ctx context.Context) (*api.Client, error) {
	cfg, err := loadOrDefaultSessionConfig(*c.configPath)
	if err != nil {
		return nil, err
	}
	client, err := api.New(api.Options{StoreKind: *c.storeKind, DBPath: *c.dbPath, Session: &cfg})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// parseEdits reads a comma separated list of edits, each "name" or "name:arg",
// e.g. "add-layer,add-node:hidden_0,hidden-activation:tanh".
func parseEdits(list string) ([]session.Edit, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var edits []session.Edit
	for _, item := range strings.Split(list, ",") {
		e, err := parseEdit(strings.TrimSpace(item))
		if err != nil {
			return nil, err
		}
		edits = append(edits, e)
	}
	return edits, nil
}

func parseEdit(item string) (session.Edit, error) {
	name, arg, _ := strings.Cut(item, ":")
	return session.ParseEdit(name, arg)
}

// resolveTopology returns id, or creates a topology from edits when no id is given so the
// memory store is usable within one invocation.
func resolveTopology(ctx context.Context, client *api.Client, id, edits string) (string, error) {
	if id != "" {
		if edits != "" {
			return "", errors.New("--edits cannot be combined with --id; use the edit command")
		}
		return id, nil
	}
	parsed, err := parseEdits(edits)
	if err != nil {
		return "", err
	}
	summary, err := client.Create(ctx, parsed...)
	if err != nil {
		return "", err
	}
	return summary.ID, nil
}

func runInit(ctx context.Context, args []string) error {
	fs, common := newFlagSet("init")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	fmt.Printf("initialized store=%s\n", *common.storeKind)
	return nil
}

func runCreate(ctx context.Context, args []string) error {
	fs, common := newFlagSet("create")
	edits := fs.String("edits", "", "comma separated edits applied to the default topology")
	if err := fs.Parse(args); err != nil {
		return err
	}
	parsed, err := parseEdits(*edits)
	if err != nil {
		return err
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Create(ctx, parsed...)
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(summary)
	}
	printSummary(summary)
	return nil
}

func runList(ctx context.Context, args []string) error {
	fs, common := newFlagSet("list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.List(ctx)
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(items)
	}
	if len(items) == 0 {
		fmt.Println("no topologies found")
		return nil
	}
	t := newTable("id", "topology", "edges", "epochs", "updated").Align(lipgloss.Left, lipgloss.Left, lipgloss.Right)
	for _, item := range items {
		t.Row(item.ID, item.Description, humanize.Comma(int64(item.EdgeCount)), strconv.Itoa(item.Epochs), item.UpdatedAtUTC)
	}
	t.Print()
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs, common := newFlagSet("show")
	id := fs.String("id", "", "topology id")
	edits := fs.String("edits", "", "edits for a transient topology when --id is empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	topoID, err := resolveTopology(ctx, client, *id, *edits)
	if err != nil {
		return err
	}
	summary, err := client.Get(ctx, topoID)
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(summary)
	}
	printSummary(summary)
	return nil
}

func runEdit(ctx context.Context, args []string) error {
	fs, common := newFlagSet("edit")
	id := fs.String("id", "", "topology id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("edit requires --id")
	}
	if fs.NArg() == 0 {
		return errors.New("edit requires at least one edit, e.g. add-layer or add-node:hidden_0")
	}
	edits := make([]session.Edit, 0, fs.NArg())
	for _, item := range fs.Args() {
		e, err := parseEdit(item)
		if err != nil {
			return err
		}
		edits = append(edits, e)
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Edit(ctx, *id, edits...)
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(summary)
	}
	fmt.Printf("applied=%d changed=%d\n", summary.Applied, summary.Changed)
	printSummary(summary.Topology)
	return nil
}

func runDelete(ctx context.Context, args []string) error {
	fs, common := newFlagSet("delete")
	id := fs.String("id", "", "topology id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("delete requires --id")
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("deleted id=%s\n", *id)
	return nil
}

func runLayout(ctx context.Context, args []string) error {
	fs, common := newFlagSet("layout")
	id := fs.String("id", "", "topology id")
	edits := fs.String("edits", "", "edits for a transient topology when --id is empty")
	width := fs.Float64("width", 0, "canvas width, configured canvas when 0")
	height := fs.Float64("height", 0, "canvas height, configured canvas when 0")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	topoID, err := resolveTopology(ctx, client, *id, *edits)
	if err != nil {
		return err
	}
	l, err := client.Layout(ctx, topoID, *width, *height)
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(l)
	}
	fmt.Printf("canvas=%gx%g nodes=%d\n", l.Width, l.Height, l.NodeCount())
	t := newTable("layer", "index", "x", "y").Align(lipgloss.Left, lipgloss.Right)
	for _, layer := range l.Layers {
		for i, p := range layer.Positions {
			t.Row(layer.Name, strconv.Itoa(i), formatFloat(p.X), formatFloat(p.Y))
		}
	}
	t.Print()
	return nil
}

func runEdges(ctx context.Context, args []string) error {
	fs, common := newFlagSet("edges")
	id := fs.String("id", "", "topology id")
	edits := fs.String("edits", "", "edits for a transient topology when --id is empty")
	limit := fs.Int("limit", 0, "max edges to print, all when 0")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return errors.New("limit must be >= 0")
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	topoID, err := resolveTopology(ctx, client, *id, *edits)
	if err != nil {
		return err
	}
	list, err := client.Edges(ctx, topoID)
	if err != nil {
		return err
	}
	total := len(list)
	if *limit > 0 && len(list) > *limit {
		list = list[:*limit]
	}
	if *common.jsonOut {
		return printJSON(list)
	}
	fmt.Printf("edges=%s\n", humanize.Comma(int64(total)))
	t := newTable("#", "source", "src_idx", "target", "tar_idx").Align(lipgloss.Right, lipgloss.Left, lipgloss.Right, lipgloss.Left, lipgloss.Right)
	for i, e := range list {
		t.Row(strconv.Itoa(i), e.SourceLayer, strconv.Itoa(e.SourceIndex), e.TargetLayer, strconv.Itoa(e.TargetIndex))
	}
	t.Print()
	return nil
}

func runPlan(ctx context.Context, args []string) error {
	fs, common := newFlagSet("plan")
	id := fs.String("id", "", "topology id")
	edits := fs.String("edits", "", "edits for a transient topology when --id is empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	topoID, err := resolveTopology(ctx, client, *id, *edits)
	if err != nil {
		return err
	}
	plan, err := client.Plan(ctx, topoID)
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(plan)
	}
	s := plan.Settings
	fmt.Printf("input_dim=%d optimizer=%s lr=%g loss=%s batch=%d epochs=%d\n",
		plan.InputDim, s.Optimizer, s.LearningRate, s.Loss, s.BatchSize, s.Epochs)
	t := newTable("layer", "kernel", "activation", "params", "edge_offset").Align(lipgloss.Left, lipgloss.Right, lipgloss.Left, lipgloss.Right, lipgloss.Right)
	for _, d := range plan.Layers {
		shape := d.KernelShape()
		t.Row(d.Name, fmt.Sprintf("%dx%d", shape[0], shape[1]), d.Activation.Label(), humanize.Comma(int64(d.Params())), strconv.Itoa(d.EdgeOffset))
	}
	t.Print()
	fmt.Printf("params=%s kernel_params=%s\n", humanize.Comma(int64(plan.Params())), humanize.Comma(int64(plan.KernelParams())))
	return nil
}

func runScene(ctx context.Context, args []string) error {
	fs, common := newFlagSet("scene")
	id := fs.String("id", "", "topology id")
	edits := fs.String("edits", "", "edits for a transient topology when --id is empty")
	epoch := fs.Int("epoch", -1, "recorded epoch to render, latest when negative")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	topoID, err := resolveTopology(ctx, client, *id, *edits)
	if err != nil {
		return err
	}
	sc, err := client.Scene(ctx, api.SceneRequest{ID: topoID, Epoch: *epoch})
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(sc)
	}
	fmt.Printf("%s, %d nodes, %d edges\n", sc.LayerText, len(sc.Nodes), len(sc.Edges))
	controls := newTable("layer", "left", "label").Align(lipgloss.Left, lipgloss.Right)
	for _, c := range sc.Controls {
		controls.Row(c.Layer, formatFloat(c.Left), c.Label)
	}
	controls.Print()
	edgesTable := newTable("id", "edge", "stroke", "width", "tooltip").Align(lipgloss.Right, lipgloss.Left, lipgloss.Left, lipgloss.Right)
	for _, e := range sc.Edges {
		tooltip := ""
		if e.HasWeight {
			tooltip = e.Tooltip
		}
		edgesTable.Row(strconv.Itoa(e.ID), e.Edge.String(), e.Stroke, formatFloat(e.Width), tooltip)
	}
	edgesTable.Print()
	return nil
}

func runRecordEpoch(ctx context.Context, args []string) error {
	fs, common := newFlagSet("record-epoch")
	id := fs.String("id", "", "topology id")
	epoch := fs.Int("epoch", 0, "epoch number, 0 for the initial weights")
	weightsInline := fs.String("weights", "", "comma separated flat weight vector")
	weightsFile := fs.String("weights-file", "", "JSON file holding the flat weight vector")
	loss := fs.Float64("loss", 0, "training loss")
	acc := fs.Float64("acc", 0, "training accuracy")
	valLoss := fs.Float64("val-loss", 0, "validation loss")
	valAcc := fs.Float64("val-acc", 0, "validation accuracy")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("record-epoch requires --id")
	}
	flat, err := readWeights(*weightsInline, *weightsFile)
	if err != nil {
		return err
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	epochs, err := client.RecordEpoch(ctx, api.RecordEpochRequest{
		ID:      *id,
		Epoch:   *epoch,
		Weights: flat,
		Metrics: model.EpochMetrics{Loss: *loss, Accuracy: *acc, ValLoss: *valLoss, ValAccuracy: *valAcc},
	})
	if err != nil {
		return err
	}
	fmt.Printf("recorded id=%s epoch=%d epochs=%d\n", *id, *epoch, epochs)
	return nil
}

func readWeights(inline, path string) ([]float64, error) {
	switch {
	case inline != "" && path != "":
		return nil, errors.New("use either --weights or --weights-file")
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var flat []float64
		if err := json.Unmarshal(data, &flat); err != nil {
			return nil, fmt.Errorf("decode weights file: %w", err)
		}
		return flat, nil
	case inline != "":
		parts := strings.Split(inline, ",")
		flat := make([]float64, 0, len(parts))
		for _, part := range parts {
			w, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("parse weight %q: %w", part, err)
			}
			flat = append(flat, w)
		}
		return flat, nil
	default:
		return nil, errors.New("weights are required: use --weights or --weights-file")
	}
}

func runHistory(ctx context.Context, args []string) error {
	fs, common := newFlagSet("history")
	id := fs.String("id", "", "topology id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("history requires --id")
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.History(ctx, *id)
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(history)
	}
	if len(history.Weights) == 0 {
		fmt.Println("no history recorded")
		return nil
	}
	fmt.Printf("epochs=%d\n", history.Epochs)
	t := newTable("epoch", "loss", "acc", "val_loss", "val_acc", "mean|w|", "max|w|").Align(lipgloss.Right)
	for _, w := range history.Weights {
		row := []string{strconv.Itoa(w.Epoch), "", "", "", ""}
		if w.Epoch > 0 && w.Epoch <= len(history.Metrics) {
			m := history.Metrics[w.Epoch-1]
			row = []string{strconv.Itoa(w.Epoch), formatFloat(m.Loss), formatFloat(m.Accuracy), formatFloat(m.ValLoss), formatFloat(m.ValAccuracy)}
		}
		t.Row(append(row, formatFloat(w.Summary.MeanAbs), formatFloat(w.Summary.MaxAbs))...)
	}
	t.Print()
	if history.Best != nil {
		fmt.Printf("best val_acc=%s at epoch %d\n", formatFloat(history.Best.ValAccuracy), history.Best.Epoch)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs, common := newFlagSet("export")
	id := fs.String("id", "", "topology id")
	edits := fs.String("edits", "", "edits for a transient topology when --id is empty")
	outDir := fs.String("out", "exports", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := common.client(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	topoID, err := resolveTopology(ctx, client, *id, *edits)
	if err != nil {
		return err
	}
	dir, err := client.Export(ctx, topoID, *outDir)
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(map[string]string{"id": topoID, "dir": dir})
	}
	fmt.Printf("exported %s to %s\n", topoID, dir)
	return nil
}

func runActivations(_ context.Context, args []string) error {
	fs, common := newFlagSet("activations")
	name := fs.String("name", "", "activation to sample; lists all when empty")
	minX := fs.Float64("min", -10, "first sample")
	maxX := fs.Float64("max", 10, "last sample")
	step := fs.Float64("step", 1, "sample step")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		t := newTable("name", "label", "preview")
		for _, n := range activation.All() {
			_, ok := n.Scalar()
			t.Row(string(n), n.Label(), strconv.FormatBool(ok))
		}
		t.Print()
		return nil
	}
	act, err := activation.Parse(*name)
	if err != nil {
		return err
	}
	points, err := activation.Curve(act, *minX, *maxX, *step)
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(points)
	}
	t := newTable("x", act.Label()+"(x)").Align(lipgloss.Right, lipgloss.Right)
	for _, p := range points {
		t.Row(formatFloat(p.X), formatFloat(p.Y))
	}
	t.Print()
	return nil
}

func printSummary(s api.TopologySummary) {
	fmt.Printf("id=%s dataset=%s\n", s.ID, s.Dataset)
	fmt.Printf("topology=%s\n", s.Description)
	t := newTable("layer", "kind", "size", "activation", "x").Align(lipgloss.Left, lipgloss.Left, lipgloss.Right, lipgloss.Left, lipgloss.Right)
	for _, layer := range s.Layers {
		t.Row(layer.Name, layer.Kind, strconv.Itoa(layer.Size), layer.Activation, formatFloat(layer.XPos))
	}
	t.Print()
	fmt.Printf("hidden=%d edges=%s params=%s epochs=%d\n",
		s.HiddenCount, humanize.Comma(int64(s.EdgeCount)), humanize.Comma(int64(s.Params)), s.Epochs)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: layerlabctl <init|create|list|show|edit|delete|layout|edges|plan|scene|record-epoch|history|export|activations> [flags]", msg)
}
