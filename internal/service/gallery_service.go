package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"merchstore/internal/cache"
	"merchstore/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GalleryService reconciles product gallery image lists between the product
// row and the redis fallback cache. The cache is the durability floor and is
// always a superset-or-equal view of what is displayed; the product row is a
// best-effort mirror while the schema gap (missing gallery column) persists.
type GalleryService struct {
	products repository.ProductRepository
	caps     *repository.SchemaCapabilities
	kv       cache.KV
	logger   *zap.Logger
}

// NewGalleryService creates a new GalleryService around an explicit
// capability set.
func NewGalleryService(
	products repository.ProductRepository,
	caps *repository.SchemaCapabilities,
	kv cache.KV,
	logger *zap.Logger,
) *GalleryService {
	return &GalleryService{
		products: products,
		caps:     caps,
		kv:       kv,
		logger:   logger,
	}
}

// Probe refreshes the recorded presence of the gallery column and mirrors
// it into the flag key. Clearing a previously-set "missing" flag re-enables
// the remote write path.
func (g *GalleryService) Probe(ctx context.Context) error {
	exists, err := g.products.ProbeGalleryField(ctx)
	if err != nil {
		return fmt.Errorf("gallery capability probe failed: %w", err)
	}

	g.caps.SetGalleryField(exists)
	if err := g.kv.Set(ctx, cache.GalleryFieldExistsKey, boolString(exists)); err != nil {
		g.logger.Warn("Failed to persist gallery capability flag", zap.Error(err))
	}

	g.logger.Info("Gallery capability probed", zap.Bool("field_exists", exists))
	return nil
}

// SaveGallery stores the image URL list for a product. The local cache
// write always happens first and is the only step that can fail the call;
// the remote write degrades on a missing column by flagging the gap and
// relying on the cache.
func (g *GalleryService) SaveGallery(ctx context.Context, productID uuid.UUID, urls []string) error {
	if urls == nil {
		urls = []string{}
	}

	encoded, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("failed to encode gallery images: %w", err)
	}

	if err := g.kv.Set(ctx, cache.GalleryKey(productID), string(encoded)); err != nil {
		return fmt.Errorf("failed to write gallery cache: %w", err)
	}

	if !g.caps.GalleryField() {
		// Remote write path suppressed until a probe clears the flag.
		g.logger.Debug("Skipping remote gallery write, column flagged missing",
			zap.String("product_id", productID.String()),
		)
		return nil
	}

	if err := g.products.UpdateGallery(ctx, productID, urls); err != nil {
		g.handleRemoteWriteFailure(ctx, productID, err)
	}

	return nil
}

// LoadGallery returns the image list for a product, merging the remote and
// cached views without duplication. Remote and cache are read concurrently;
// either side failing degrades to the other. When the cache holds images the
// row lacks, the remote write is re-attempted opportunistically.
func (g *GalleryService) LoadGallery(ctx context.Context, productID uuid.UUID) ([]string, error) {
	var remote, local []string
	var remoteErr, localErr error

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if !g.caps.GalleryField() {
			return nil
		}
		product, err := g.products.FindByID(egCtx, productID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil
			}
			remoteErr = err
			return nil
		}
		remote = product.GalleryImages
		return nil
	})

	eg.Go(func() error {
		value, ok, err := g.kv.Get(egCtx, cache.GalleryKey(productID))
		if err != nil {
			localErr = err
			return nil
		}
		if !ok {
			return nil
		}
		if err := json.Unmarshal([]byte(value), &local); err != nil {
			localErr = fmt.Errorf("corrupt gallery cache entry: %w", err)
		}
		return nil
	})

	// Goroutines record per-source errors instead of failing the group:
	// one degraded source must not block the other.
	_ = eg.Wait()

	if remoteErr != nil && localErr != nil {
		return nil, fmt.Errorf("gallery unavailable: remote: %v, cache: %w", remoteErr, localErr)
	}
	if remoteErr != nil {
		g.logger.Warn("Remote gallery read failed, serving cache only",
			zap.String("product_id", productID.String()),
			zap.Error(remoteErr),
		)
	}
	if localErr != nil {
		g.logger.Warn("Gallery cache read failed, serving remote only",
			zap.String("product_id", productID.String()),
			zap.Error(localErr),
		)
	}

	merged := mergeImageURLs(remote, local)

	// The cache has images the row lacks: try to close the gap now.
	if len(remote) == 0 && len(local) > 0 && g.caps.GalleryField() {
		if err := g.products.UpdateGallery(ctx, productID, merged); err != nil {
			g.handleRemoteWriteFailure(ctx, productID, err)
		}
	}

	return merged, nil
}

func (g *GalleryService) handleRemoteWriteFailure(ctx context.Context, productID uuid.UUID, err error) {
	if errors.Is(err, repository.ErrGalleryFieldMissing) {
		g.caps.SetGalleryField(false)
		if flagErr := g.kv.Set(ctx, cache.GalleryFieldExistsKey, "false"); flagErr != nil {
			g.logger.Warn("Failed to persist gallery capability flag", zap.Error(flagErr))
		}
		g.logger.Warn("Gallery column missing remotely, falling back to cache",
			zap.String("product_id", productID.String()),
		)
		return
	}

	g.logger.Warn("Remote gallery write failed",
		zap.String("product_id", productID.String()),
		zap.Error(err),
	)
}

// mergeImageURLs unions two URL lists, preserving order and dropping
// duplicates (remote first, then cache-only entries).
func mergeImageURLs(remote, local []string) []string {
	merged := make([]string, 0, len(remote)+len(local))
	seen := make(map[string]struct{}, len(remote)+len(local))

	for _, list := range [][]string{remote, local} {
		for _, url := range list {
			if url == "" {
				continue
			}
			if _, ok := seen[url]; ok {
				continue
			}
			seen[url] = struct{}{}
			merged = append(merged, url)
		}
	}

	return merged
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
