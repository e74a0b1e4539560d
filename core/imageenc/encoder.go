package imageenc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/visionlang/vl/core/vl"
)

const (
	// DataURIPrefix is prepended to every encoded image.
	DataURIPrefix = "data:image/jpeg;base64,"

	DefaultQuality  = 90
	DefaultCacheTTL = 5 * time.Minute

	cacheTimeout = time.Second
)

// ErrInvalidDataURI is returned by DataURI for strings that are not
// base64 data URIs.
var ErrInvalidDataURI = errors.New("imageenc: not a base64 data URI")

// Encoder converts images to base64 JPEG data URIs. It is safe for concurrent
// use.
type Encoder struct {
	quality  int
	maxSide  int
	cacheTTL time.Duration
	cache    *cache.Cache[string]
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithQuality sets the JPEG quality (1-100).
func WithQuality(quality int) Option {
	return func(e *Encoder) {
		if quality >= 1 && quality <= 100 {
			e.quality = quality
		}
	}
}

// WithMaxSide fits images inside a maxSide x maxSide box before encoding.
// Zero keeps the original size.
func WithMaxSide(maxSide int) Option {
	return func(e *Encoder) {
		if maxSide >= 0 {
			e.maxSide = maxSide
		}
	}
}

// WithCacheTTL sets how long encoded bytes are cached. A non-positive ttl
// disables the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Encoder) {
		e.cacheTTL = ttl
	}
}

// New creates an Encoder.
func New(opts ...Option) *Encoder {
	e := &Encoder{
		quality:  DefaultQuality,
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cacheTTL > 0 {
		client := gocache.New(e.cacheTTL, e.cacheTTL)
		e.cache = cache.New[string](go_cache.NewGoCache(client))
	}
	return e
}

var defaultEncoder = New()

// File returns an Image read from path by the default Encoder.
func File(path string) vl.Image { return defaultEncoder.File(path) }

// Bytes returns an Image holding encoded image bytes (JPEG, PNG, GIF, BMP,
// TIFF) for the default Encoder.
func Bytes(data []byte) vl.Image { return defaultEncoder.Bytes(data) }

// Reader returns an Image read from r by the default Encoder.
func Reader(r io.Reader) vl.Image { return defaultEncoder.Reader(r) }

// Picture returns an Image for an already decoded picture.
func Picture(img image.Image) vl.Image { return defaultEncoder.Picture(img) }

// DataURI validates s as a base64 data URI and returns it unchanged.
func DataURI(s string) (vl.EncodedImage, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") || payload == "" {
		return vl.EncodedImage{}, ErrInvalidDataURI
	}
	return vl.EncodedImage{Base64: s}, nil
}

// File returns an Image that reads and encodes path on every Encode call.
// Repeated encodes of unchanged files are served from the cache.
func (e *Encoder) File(path string) vl.Image {
	return imageFunc(func(ctx context.Context) (vl.EncodedImage, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return vl.EncodedImage{}, fmt.Errorf("reading image file: %w", err)
		}
		return e.EncodeBytes(ctx, data)
	})
}

// Bytes returns an Image for encoded image bytes or a data URI.
func (e *Encoder) Bytes(data []byte) vl.Image {
	return imageFunc(func(ctx context.Context) (vl.EncodedImage, error) {
		return e.EncodeBytes(ctx, data)
	})
}

// Reader reads r on the first Encode. The Image can be encoded only once.
func (e *Encoder) Reader(r io.Reader) vl.Image {
	return imageFunc(func(ctx context.Context) (vl.EncodedImage, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return vl.EncodedImage{}, fmt.Errorf("reading image: %w", err)
		}
		return e.EncodeBytes(ctx, data)
	})
}

// Picture encodes img on every call; decoded pictures are not cached.
func (e *Encoder) Picture(img image.Image) vl.Image {
	return imageFunc(func(ctx context.Context) (vl.EncodedImage, error) {
		if err := ctx.Err(); err != nil {
			return vl.EncodedImage{}, err
		}
		if img == nil {
			return vl.EncodedImage{}, errors.New("imageenc: nil picture")
		}
		uri, err := e.encode(img)
		if err != nil {
			return vl.EncodedImage{}, err
		}
		return vl.EncodedImage{Base64: uri}, nil
	})
}

// EncodeBytes decodes data and returns it as a JPEG data URI. Data that is
// already a data URI is returned as is.
func (e *Encoder) EncodeBytes(ctx context.Context, data []byte) (vl.EncodedImage, error) {
	if err := ctx.Err(); err != nil {
		return vl.EncodedImage{}, err
	}
	if bytes.HasPrefix(data, []byte("data:")) {
		return DataURI(string(data))
	}

	key := e.cacheKey(data)
	if uri, ok := e.lookup(ctx, key); ok {
		return vl.EncodedImage{Base64: uri}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return vl.EncodedImage{}, fmt.Errorf("decoding image: %w", err)
	}
	uri, err := e.encode(img)
	if err != nil {
		return vl.EncodedImage{}, err
	}

	e.store(ctx, key, uri)
	return vl.EncodedImage{Base64: uri}, nil
}

func (e *Encoder) encode(img image.Image) (string, error) {
	bounds := img.Bounds()
	if e.maxSide > 0 && (bounds.Dx() > e.maxSide || bounds.Dy() > e.maxSide) {
		img = imaging.Fit(img, e.maxSide, e.maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(e.quality)); err != nil {
		return "", fmt.Errorf("encoding jpeg: %w", err)
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// cacheKey covers the settings as well as the bytes so encoders with
// different options never share entries.
func (e *Encoder) cacheKey(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:q%d:m%d", hex.EncodeToString(sum[:]), e.quality, e.maxSide)
}

func (e *Encoder) lookup(ctx context.Context, key string) (string, bool) {
	if e.cache == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	uri, err := e.cache.Get(ctx, key)
	if err != nil {
		if !isCacheMiss(err) {
			slog.Warn("image cache lookup failed", "error", err)
		}
		return "", false
	}
	return uri, uri != ""
}

func isCacheMiss(err error) bool {
	return errors.Is(err, store.NotFound{})
}

func (e *Encoder) store(ctx context.Context, key, uri string) {
	if e.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()

	if err := e.cache.Set(ctx, key, uri, store.WithExpiration(e.cacheTTL)); err != nil {
		slog.Warn("image cache store failed", "error", err)
	}
}

type imageFunc func(ctx context.Context) (vl.EncodedImage, error)

func (f imageFunc) Encode(ctx context.Context) (vl.EncodedImage, error) {
	return f(ctx)
}
