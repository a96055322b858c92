// Command prdiffd is the demo HTTP service wrapping internal/engine: upload
// a patch (or full before/after content), get back a rendered ParsedDiff,
// and re-fetch it later by id. Grounded on the teacher's main.go/pkg/http:
// same flag/env option parsing, same chi middleware stack, same
// usageString-for-non-browsers fallback.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.etcd.io/bbolt"

	"github.com/thehowl/prdiff/internal/cache"
	"github.com/thehowl/prdiff/internal/pool"
	"github.com/thehowl/prdiff/internal/quota"
	"github.com/thehowl/prdiff/pkg/storage"
)

type optsType struct {
	listenAddr     string
	publicURL      string
	dbFile         string
	s3Endpoint     string
	s3AccessKey    string
	s3AccessSecret string
	s3Bucket       string
}

func defaultEnv(s, def string) string {
	if v, ok := os.LookupEnv(s); ok {
		return v
	}
	return def
}

func stringVar(p *string, fg, defaultValue, usage string) {
	ev := strings.ReplaceAll(strings.ToUpper(fg), "-", "_")
	flag.StringVar(p, fg, defaultEnv(ev, defaultValue), usage+". env var: "+ev)
}

func main() {
	var opts optsType
	stringVar(&opts.listenAddr, "listen-addr", ":18844", "listen address for the web server")
	stringVar(&opts.publicURL, "public-url", "http://localhost:18844", "public url of this server")
	stringVar(&opts.dbFile, "db-file", "data/db.bolt", "bbolt file; acts as a cache in front of s3 when s3 flags are set, or as the permanent store otherwise")
	stringVar(&opts.s3Endpoint, "s3-endpoint", "", "s3 endpoint")
	stringVar(&opts.s3AccessKey, "s3-access-key", "", "s3 access key")
	stringVar(&opts.s3AccessSecret, "s3-access-secret", "", "s3 access secret")
	stringVar(&opts.s3Bucket, "s3-bucket", "", "s3 bucket")
	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(opts.dbFile), 0o755); err != nil {
		panic(fmt.Errorf("creating db directory: %w", err))
	}
	boltDB, err := bbolt.Open(opts.dbFile, 0o600, nil)
	if err != nil {
		panic(fmt.Errorf("db open error: %w", err))
	}

	var diffStorage storage.Storage
	if opts.s3Endpoint == "" {
		diffStorage, err = storage.NewDBStorage(boltDB, "diffs")
		if err != nil {
			panic(fmt.Errorf("storage init error: %w", err))
		}
	} else {
		cacheStorage, err := storage.NewDBStorage(boltDB, "diffs-cache")
		if err != nil {
			panic(fmt.Errorf("cache storage init error: %w", err))
		}
		minioClient, err := minio.New(opts.s3Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(opts.s3AccessKey, opts.s3AccessSecret, ""),
			Secure: true,
		})
		if err != nil {
			panic(fmt.Errorf("minio init error: %w", err))
		}
		permanent := storage.NewMinioStorage(minioClient, opts.s3Bucket)
		diffStorage, err = storage.NewCachedStorage(cacheStorage.(storage.ListStorage), permanent, 64<<20)
		if err != nil {
			panic(fmt.Errorf("cached storage init error: %w", err))
		}
	}

	srv := &Server{
		PublicURL: opts.publicURL,
		Storage:   diffStorage,
		Quota:     &quota.Limiter{DB: boltDB},
		Pool:      pool.New(runtime.NumCPU()),
		Cache:     cache.New(cache.DefaultCap),
	}

	fmt.Println("listening on", opts.listenAddr)
	panic(http.ListenAndServe(opts.listenAddr, srv.Router()))
}
