package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"securitypassport/internal/passport/assembler"
	"securitypassport/internal/passport/export"
	"securitypassport/internal/passport/overrides"
	overridestore "securitypassport/internal/passport/overrides/store"
	"securitypassport/internal/passport/schema"
	"securitypassport/internal/passport/store"
	"securitypassport/internal/platform/objectstore"
	id "securitypassport/pkg/domain"
	audit "securitypassport/pkg/platform/audit"
	auditpostgres "securitypassport/pkg/platform/audit/store/postgres"
	"securitypassport/pkg/requestcontext"
)

func newExportCmd() *cobra.Command {
	var (
		tenant string
		format string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export <template_code>",
		Short: "Write a tenant's passport archive or document to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := id.ParseTenantID(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			kind := overrides.ExportKind(format)
			if _, err := kind.IncludeEvidenceKey(); err != nil {
				return err
			}

			cfg := getCfg(cmd)
			db := getDB(cmd)
			log := getLogger()
			objects, err := objectstore.New(cfg.S3)
			if err != nil {
				return err
			}
			svc := export.New(
				assembler.New(store.NewPostgres(db), store.NewPostgresInspector(db), schema.DefaultCatalog, assembler.WithLogger(log)),
				overrides.NewPolicy(overridestore.NewPostgres(db), log),
				objects,
				export.Config{
					DownloadConcurrency: cfg.Export.DownloadConcurrency,
					DownloadTimeout:     cfg.Export.DownloadTimeout,
				},
				export.WithLogger(log),
				export.WithHTTPClient(&http.Client{}),
			)

			ctx := requestcontext.WithTime(cmd.Context(), time.Now().UTC())
			code := args[0]
			var (
				name  string
				body  []byte
				extra string
			)
			switch kind {
			case overrides.ExportKindZip:
				archive, err := svc.ExportZip(ctx, tenantID, code, id.UserID{})
				if err != nil {
					return err
				}
				name, body = archive.Filename, archive.Body
				extra = fmt.Sprintf(", %d evidence files, %d failed", archive.Downloaded, len(archive.Failures))
			default:
				doc, err := svc.ExportDocx(ctx, tenantID, code, id.UserID{})
				if err != nil {
					return err
				}
				name, body = doc.Filename, doc.Body
			}

			path, err := writeExport(outDir, name, body)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), path, len(body), extra)

			event := audit.Event{
				Timestamp:  requestcontext.Now(ctx),
				TenantID:   tenantID,
				Action:     "passport.export." + string(kind),
				ObjectType: audit.ObjectTemplate,
				ObjectID:   code,
				Metadata:   map[string]any{"filename": name, "bytes": len(body), "via": "passportctl"},
			}
			if err := auditpostgres.New(db).Append(ctx, event); err != nil {
				log.Warn("failed to record audit event", "error", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant id (required)")
	cmd.Flags().StringVarP(&format, "format", "f", string(overrides.ExportKindZip), "Export format: zip or docx")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the file into")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

// writeExport writes body under dir and returns the file path. Existing
// files are never overwritten.
func writeExport(dir, name string, body []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, f.Close()
}

func printSummary(w io.Writer, path string, size int, extra string) {
	fmt.Fprintf(w, "wrote %s (%s%s)\n", path, humanize.Bytes(uint64(size)), extra)
}
