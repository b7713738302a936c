package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"mentalworld.ai/internal/persistence/mirror"
)

// Off-box mirroring is configured from the environment so credentials stay
// out of flags and config files.
type mirrorRuntime struct {
	enabled bool
	mirror  *mirror.Mirror
}

func buildMirrorRuntime(dataDir string, logger *log.Logger) (*mirrorRuntime, error) {
	if !envBool("MW_MIRROR", false) {
		return &mirrorRuntime{}, nil
	}

	endpoint := strings.TrimSpace(os.Getenv("MW_MIRROR_ENDPOINT"))
	bucket := strings.TrimSpace(os.Getenv("MW_MIRROR_BUCKET"))
	accessKey := strings.TrimSpace(os.Getenv("MW_MIRROR_ACCESS_KEY_ID"))
	secretKey := strings.TrimSpace(os.Getenv("MW_MIRROR_SECRET_ACCESS_KEY"))
	prefix := strings.TrimSpace(os.Getenv("MW_MIRROR_PREFIX"))

	if endpoint == "" || bucket == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("MW_MIRROR=true but MW_MIRROR_ENDPOINT/MW_MIRROR_BUCKET/MW_MIRROR_ACCESS_KEY_ID/MW_MIRROR_SECRET_ACCESS_KEY are not fully set")
	}

	client, err := mirror.NewClient(endpoint, bucket, accessKey, secretKey)
	if err != nil {
		return nil, err
	}

	workers := envInt("MW_MIRROR_WORKERS", 2)
	return &mirrorRuntime{
		enabled: true,
		mirror:  mirror.New(client, dataDir, prefix, workers, 1024, logger),
	}, nil
}

func (r *mirrorRuntime) Enqueue(localPath string) {
	if r == nil || !r.enabled {
		return
	}
	r.mirror.Enqueue(localPath)
}

func (r *mirrorRuntime) Close() {
	if r == nil || r.mirror == nil {
		return
	}
	r.mirror.Close()
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
