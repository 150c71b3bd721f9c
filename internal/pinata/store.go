package pinata

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Upload is one successfully pinned image.
type Upload struct {
	File     string
	IpfsHash string
}

// StoreImages pins every regular file in dir. Files are uploaded
// independently: a failed upload is logged and left out of the result, the
// rest continue. Uploads are returned in directory order along with the
// full, sorted list of file names.
func (c *Client) StoreImages(ctx context.Context, dir string) ([]Upload, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read images dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		// Symlinks are followed. An entry that cannot be stat'ed is kept so
		// its failure is logged with the other uploads.
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		if err == nil && !info.Mode().IsRegular() {
			continue
		}
		files = append(files, e.Name())
	}

	c.logger.Info("uploading images to IPFS",
		slog.String("dir", dir),
		slog.Int("files", len(files)),
	)

	results := make([]*Upload, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, name := range files {
		g.Go(func() error {
			resp, err := c.pinFile(gctx, filepath.Join(dir, name), name)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Error("image upload failed",
					slog.String("file", name),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[i] = &Upload{File: name, IpfsHash: resp.IpfsHash}
			c.logger.Info("image pinned",
				slog.String("file", name),
				slog.String("ipfs_hash", resp.IpfsHash),
				slog.Bool("cached", resp.Cached),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, files, err
	}

	uploads := make([]Upload, 0, len(files))
	for _, u := range results {
		if u != nil {
			uploads = append(uploads, *u)
		}
	}
	return uploads, files, nil
}

func (c *Client) pinFile(ctx context.Context, path, name string) (*PinResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		c.metrics.failed("file")
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	return c.PinFileToIPFS(ctx, name, f)
}

// StoreTokenURIMetadata pins one token metadata document under name.
func (c *Client) StoreTokenURIMetadata(ctx context.Context, name string, metadata interface{}) (*PinResponse, error) {
	resp, err := c.PinJSONToIPFS(ctx, name, metadata)
	if err != nil {
		return nil, fmt.Errorf("store metadata %s: %w", name, err)
	}
	return resp, nil
}
