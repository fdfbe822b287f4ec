package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // decoder registration
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/follower-catcher/internal/config"
	"github.com/Faultbox/follower-catcher/internal/logger"
)

// maxAvatarBytes bounds a single avatar download.
const maxAvatarBytes = 4 << 20

type searchResponse struct {
	Posts []struct {
		AuthorID   string `json:"author_id"`
		ScreenName string `json:"screen_name"`
		Text       string `json:"text"`
		AvatarURL  string `json:"avatar_url"`
	} `json:"posts"`
}

// Client searches the feed endpoint and fills a Store. Every method is safe
// for concurrent use.
type Client struct {
	endpoint string
	size     int
	limit    int
	http     *http.Client
	store    *Store
	cache    *DiskCache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	fetching map[string]struct{}

	log *zap.Logger
}

// NewClient creates a client for cfg. A nil cache disables persistence.
func NewClient(cfg config.FeedConfig, store *Store, cache *DiskCache) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	return &Client{
		endpoint: cfg.Endpoint,
		size:     cfg.AvatarSize,
		limit:    limit,
		http:     &http.Client{Timeout: cfg.RequestTimeout},
		store:    store,
		cache:    cache,
		ctx:      ctx,
		cancel:   cancel,
		fetching: make(map[string]struct{}),
		log:      logger.Named("feed"),
	}
}

// Store returns the store the client fills.
func (c *Client) Store() *Store { return c.store }

// Post returns the post recorded under key.
func (c *Client) Post(key string) (Post, bool) { return c.store.Post(key) }

// TakeAvatars returns the avatars decoded since the previous call.
func (c *Client) TakeAvatars() []Avatar { return c.store.TakeAvatars() }

// SearchPosts starts a search for tag in the background. Failures are
// logged; the next poll retries.
func (c *Client) SearchPosts(tag string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Search(c.ctx, tag); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Warn("feed search failed", zap.String("tag", tag), zap.Error(err))
		}
	}()
}

// Search runs one search for tag and fetches avatars not yet known.
// Individual avatar failures are logged and do not fail the search.
func (c *Client) Search(ctx context.Context, tag string) error {
	resp, err := c.search(ctx, tag)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for _, p := range resp.Posts {
		if p.AuthorID == "" {
			continue
		}
		key := p.AuthorID + avatarExt(p.AvatarURL)
		c.store.PutPost(key, Post{Author: "@" + p.ScreenName, Text: p.Text})

		if p.AvatarURL == "" || !c.claim(key) {
			continue
		}
		avatarURL := p.AvatarURL
		g.Go(func() error {
			defer c.release(key)
			if err := c.fetchAvatar(gctx, key, avatarURL); err != nil {
				c.log.Warn("avatar fetch failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Client) search(ctx context.Context, tag string) (*searchResponse, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing feed endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", "#"+tag)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", tag, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searching %s: %s", tag, res.Status)
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	c.log.Debug("feed search",
		zap.String("tag", tag),
		zap.Int("posts", len(out.Posts)),
		zap.Duration("took", time.Since(start)),
	)
	return &out, nil
}

// claim marks key as being fetched. It fails when the avatar is already
// known or another fetch for it is running.
func (c *Client) claim(key string) bool {
	if c.store.HasAvatar(key) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.fetching[key]; ok {
		return false
	}
	c.fetching[key] = struct{}{}
	return true
}

func (c *Client) release(key string) {
	c.mu.Lock()
	delete(c.fetching, key)
	c.mu.Unlock()
}

func (c *Client) fetchAvatar(ctx context.Context, key, rawURL string) error {
	if c.cache != nil && c.cache.Has(key) {
		img, err := c.cache.Load(key)
		if err == nil {
			c.store.AddAvatar(Avatar{Key: key, Image: img})
			return nil
		}
		c.log.Warn("discarding cached avatar", zap.String("key", key), zap.Error(err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", rawURL, res.Status)
	}

	src, format, err := image.Decode(io.LimitReader(res.Body, maxAvatarBytes))
	if err != nil {
		return fmt.Errorf("decoding %s: %w", rawURL, err)
	}
	img := Resize(src, c.size)

	if c.cache != nil {
		if err := c.cache.Save(key, img); err != nil {
			c.log.Warn("caching avatar", zap.String("key", key), zap.Error(err))
		}
	}
	if c.store.AddAvatar(Avatar{Key: key, Image: img}) {
		c.log.Debug("avatar added", zap.String("key", key), zap.String("format", format))
	}
	return nil
}

// LoadCache queues every avatar in the disk cache. Unreadable entries are
// skipped.
func (c *Client) LoadCache() (int, error) {
	if c.cache == nil {
		return 0, nil
	}
	keys, err := c.cache.Keys()
	if err != nil {
		return 0, err
	}
	added := 0
	for _, key := range keys {
		img, err := c.cache.Load(key)
		if err != nil {
			c.log.Warn("skipping cached avatar", zap.String("key", key), zap.Error(err))
			continue
		}
		if c.store.AddAvatar(Avatar{Key: key, Image: img}) {
			added++
		}
	}
	c.log.Info("avatar cache loaded", zap.Int("avatars", added), zap.String("dir", c.cache.Dir()))
	return added, nil
}

// Wait blocks until every background search has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Close cancels running searches and waits for them.
func (c *Client) Close() {
	c.cancel()
	c.wg.Wait()
}

// Resize scales src to a size x size RGBA image.
func Resize(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// avatarExt returns the file extension of an avatar URL's path.
func avatarExt(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		return path.Ext(u.Path)
	}
	return path.Ext(raw)
}
