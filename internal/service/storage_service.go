package service

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fadilmartias/exam-grader/internal/apperror"
	"github.com/fadilmartias/exam-grader/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	tokenMarker   = "token="
	storageMarker = "/storage/v1/object/"
)

type StorageServiceInterface interface {
	ResolveURL(ctx context.Context, ref string) (string, error)
	Download(ctx context.Context, fileURL, dest string) error
}

type StorageService struct {
	client     *resty.Client
	downloader *resty.Client
	baseURL    string
	bucket     string
	expiry     time.Duration
	logger     zerolog.Logger
}

func NewStorageService(cfg *config.SupabaseConfig, logger zerolog.Logger) *StorageService {
	base := strings.TrimRight(cfg.URL, "/")
	client := resty.New().
		SetBaseURL(base+"/storage/v1").
		SetHeader("apikey", cfg.Key).
		SetAuthToken(cfg.Key).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.RequestTimeout)

	return &StorageService{
		client:     client,
		downloader: resty.New().SetTimeout(cfg.RequestTimeout),
		baseURL:    base,
		bucket:     cfg.Bucket,
		expiry:     cfg.SignedURLTTL,
		logger:     logger.With().Str("component", "storage_service").Logger(),
	}
}

// ResolveURL turns a stored file reference into a URL that can be fetched
// without credentials. URLs that already carry an access token are returned as
// they are.
func (s *StorageService) ResolveURL(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if isAbsoluteURL(ref) && strings.Contains(ref, tokenMarker) {
		return ref, nil
	}

	bucket, objectPath, err := splitReference(ref, s.bucket)
	if err != nil {
		return "", err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]int{"expiresIn": int(s.expiry.Seconds())}).
		Post("/object/sign/" + bucket + "/" + escapePath(objectPath))
	if err != nil {
		return "", apperror.Network("sign object url", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: %s/%s: status %d: %s", apperror.ErrSigningFailed, bucket, objectPath, resp.StatusCode(), resp.String())
	}

	signed := gjson.GetBytes(resp.Body(), "signedURL").String()
	if signed == "" {
		signed = gjson.GetBytes(resp.Body(), "signedUrl").String()
	}
	if signed == "" {
		return "", fmt.Errorf("%w: %s/%s: response has no signed url", apperror.ErrSigningFailed, bucket, objectPath)
	}
	if isAbsoluteURL(signed) {
		return signed, nil
	}
	if !strings.HasPrefix(signed, "/") {
		signed = "/" + signed
	}

	s.logger.Debug().Str("bucket", bucket).Str("path", objectPath).Msg("signed object url")
	return s.baseURL + "/storage/v1" + signed, nil
}

// Download streams the object at fileURL into dest. A partial file is removed
// when the transfer fails.
func (s *StorageService) Download(ctx context.Context, fileURL, dest string) error {
	resp, err := s.downloader.R().
		SetContext(ctx).
		SetOutput(dest).
		Get(fileURL)
	if err != nil {
		_ = os.Remove(dest)
		return apperror.Network("download file", err)
	}
	if resp.IsError() {
		_ = os.Remove(dest)
		return apperror.NetworkStatus("download file", resp.StatusCode(), resp.Status())
	}
	return nil
}

// splitReference extracts the bucket and object path from either a storage
// URL or a bare object path.
func splitReference(ref, defaultBucket string) (string, string, error) {
	if ref == "" {
		return "", "", fmt.Errorf("%w: empty reference", apperror.ErrMalformedReference)
	}

	if !isAbsoluteURL(ref) {
		objectPath := strings.TrimPrefix(ref, "/")
		objectPath = strings.TrimPrefix(objectPath, defaultBucket+"/")
		if objectPath == "" {
			return "", "", fmt.Errorf("%w: %q has no object path", apperror.ErrMalformedReference, ref)
		}
		return defaultBucket, objectPath, nil
	}

	idx := strings.Index(ref, storageMarker)
	if idx < 0 {
		return "", "", fmt.Errorf("%w: %q is not a storage url", apperror.ErrMalformedReference, ref)
	}
	rest, _, _ := strings.Cut(ref[idx+len(storageMarker):], "?")

	access, remainder, ok := strings.Cut(rest, "/")
	if !ok {
		return "", "", fmt.Errorf("%w: %q has no bucket", apperror.ErrMalformedReference, ref)
	}
	switch access {
	case "public", "sign", "authenticated":
		rest = remainder
	}

	bucket, objectPath, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || objectPath == "" {
		return "", "", fmt.Errorf("%w: %q has no object path", apperror.ErrMalformedReference, ref)
	}
	if decoded, err := url.PathUnescape(objectPath); err == nil {
		objectPath = decoded
	}
	return bucket, objectPath, nil
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
