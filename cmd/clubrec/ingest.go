package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/clubrec/internal/domain/batch"
	catalogrepo "github.com/kailas-cloud/clubrec/internal/repository/catalog"
	cataloguc "github.com/kailas-cloud/clubrec/internal/usecase/catalog"
)

var (
	ingestFile      string
	ingestRecreate  bool
	ingestBatchSize int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed and store clubs from a YAML file",
	Long: `Creates the vector index when missing, embeds each club's name and
description, and stores the vectors together with the display metadata.
Re-running the command upserts; --recreate drops and rebuilds the index.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "clubs YAML file")
	ingestCmd.Flags().BoolVar(&ingestRecreate, "recreate", false, "drop and recreate the vector index first")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", cataloguc.DefaultBatchSize, "items per embedding call")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	items, err := cataloguc.LoadFile(ingestFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, envName)
	if err != nil {
		return err
	}
	defer a.close()

	docEmbedder := a.buildEmbedder(a.buildProvider(), a.cfg.Embedding.DocumentInstruction)
	index, err := a.buildVectorIndex()
	if err != nil {
		return err
	}
	def, err := index.Definition()
	if err != nil {
		return fmt.Errorf("index definition: %w", err)
	}
	a.logger.Info("Vector index layout", zap.Stringer("index", def))
	catalog, err := a.buildCatalog(ctx)
	if err != nil {
		return err
	}

	var writer cataloguc.ItemWriter
	if catalog != nil {
		writer = catalog
	}

	svc := cataloguc.New(index, writer, docEmbedder, a.logger).WithBatchSize(ingestBatchSize)
	results, sum, err := svc.Ingest(ctx, items, ingestRecreate)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	for _, r := range results {
		if r.Status() == dombatch.StatusError {
			cmd.PrintErrf("  %s: %v\n", r.ID(), r.Err())
		}
	}
	cmd.Printf("Ingested %d/%d clubs (%d vectors, %d tokens)\n",
		sum.Succeeded, len(items), sum.Vectors, sum.Tokens)

	if sqlRepo, ok := catalog.(*catalogrepo.SQLRepo); ok {
		if n, err := sqlRepo.Count(ctx); err == nil {
			a.logger.Info("sqlite catalog size", zap.Int("clubs", n))
		}
	}

	if sum.Failed > 0 {
		return fmt.Errorf("%d clubs failed", sum.Failed)
	}
	return nil
}
