// Command contentctl operates on the local caches behind the content
// platform: inspecting the document cache, pruning expired entries, and
// flushing queued remote media deletions.
package main

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// version is set at build time via -ldflags.
var version = "dev"

// config is read from the environment; flags override per invocation.
type config struct {
	CachePath string `env:"CONTENTCTL_CACHE_PATH" envDefault:"contentcache.db"`
	QueuePath string `env:"CONTENTCTL_QUEUE_PATH" envDefault:"pending.db"`

	MediaRepo      string `env:"CONTENTCTL_MEDIA_REPO"`
	MediaUsername  string `env:"CONTENTCTL_MEDIA_USERNAME"`
	MediaPassword  string `env:"CONTENTCTL_MEDIA_PASSWORD"`
	MediaPlainHTTP bool   `env:"CONTENTCTL_MEDIA_PLAIN_HTTP"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "contentctl:", err)
		os.Exit(1)
	}

	if err := newRootCmd(&cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "contentctl:", err)
		os.Exit(1)
	}
}
