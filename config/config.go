package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"
)

type Config struct {
	Addr              string
	DBUrl             string
	TokenSecret       string
	TokenTTL          time.Duration
	EnrichmentURL     string
	EnrichmentTimeout time.Duration
	MaxBodyBytes      int64
	Debug             bool
}

func ParseFlags() (cfg Config, err error) {
	return Parse(flag.CommandLine, os.Args[1:])
}

func Parse(fs *flag.FlagSet, args []string) (cfg Config, err error) {
	var host string
	fs.StringVar(&host, "host", "0.0.0.0", "listen host name")
	var port uint
	fs.UintVar(&port, "port", 80, "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", "intake.sqlite", "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for token encryption and decryption")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", 120, "token TTL in seconds")
	fs.StringVar(&cfg.EnrichmentURL, "enrichment-url", "", "email generation endpoint (empty disables generation)")
	var enrichTimeout uint
	fs.UintVar(&enrichTimeout, "enrichment-timeout", 30, "email generation timeout in seconds")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body", 1<<20, "maximum webhook body size in bytes")
	fs.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")

	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.EnrichmentTimeout = time.Duration(enrichTimeout) * time.Second

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
