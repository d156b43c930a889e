package cmd

import (
	stdctx "context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	mpcontext "github.com/mpengine/mpcore/internal/context"
	"github.com/mpengine/mpcore/internal/script"
	"github.com/mpengine/mpcore/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export <expr-file> <dir>",
	Short: "Evaluate a script and export its DAG as dag.json/pro.json",
	Long: `export runs an expression script exactly like eval, then writes dag.json and
pro.json (plus their gzip-compressed copies dag.json.gz and pro.json.gz) describing the
context's nodes, edges, and compute units into <dir>/daginfo. If a storage backend is
configured (storage.type), the two .gz files are also uploaded there under the same
relative path; the plain JSON files are not uploaded.`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	scriptPath, dir := args[0], args[1]

	base, err := parseBase(baseFlag)
	if err != nil {
		return err
	}

	f, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	ctx := stdctx.Background()
	s, err := script.Parse(ctx, f)
	if err != nil {
		return fmt.Errorf("parse script: %w", err)
	}

	engineCtx := mpcontext.NewContext(precision, base, GetConfig())
	if err := script.Run(ctx, engineCtx, s, os.Stdout); err != nil {
		return err
	}

	if err := engineCtx.ExportGraph(dir); err != nil {
		return fmt.Errorf("export graph: %w", err)
	}
	GetLogger().Info("exported graph to %s", filepath.Join(dir, "daginfo"))

	return uploadExport(ctx, dir)
}

// uploadExport uploads the exported dag.json.gz/pro.json.gz to the configured storage
// backend, if any. A missing or invalid storage config is not an error for export
// itself: the local files were already written, so upload failure is logged and
// swallowed rather than un-doing a successful local export.
func uploadExport(ctx stdctx.Context, dir string) error {
	cfg := GetConfig()
	if cfg == nil || cfg.Storage.Type == "" {
		return nil
	}

	store, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		GetLogger().Warn("storage backend unavailable, skipping upload: %v", err)
		return nil
	}

	daginfo := filepath.Join(dir, "daginfo")
	// Upload the gzip-compressed copies ExportGraph writes alongside the plain JSON:
	// smaller transfers for files that scale with DAG size, at the cost of requiring
	// a decompress step on retrieval.
	for _, name := range []string{"dag.json.gz", "pro.json.gz"} {
		local := filepath.Join(daginfo, name)
		key := filepath.Join("daginfo", name)
		if err := store.UploadFile(ctx, key, local); err != nil {
			GetLogger().Warn("failed to upload %s: %v", key, err)
			continue
		}
		GetLogger().Info("uploaded %s to %s", key, store.GetURL(key))
	}
	return nil
}
