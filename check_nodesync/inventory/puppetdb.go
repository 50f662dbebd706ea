package inventory

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	nodesPath   = "/pdb/query/v4/nodes"
	reportsPath = "/pdb/query/v4/reports"
)

// PuppetDBConfig describes how to reach the PuppetDB query API.
type PuppetDBConfig struct {
	Host     string
	Port     int
	Timeout  time.Duration
	CAFile   string
	CertFile string
	KeyFile  string
	Insecure bool
}

// PuppetDB queries nodes and reports over the PuppetDB v4 query API.
type PuppetDB struct {
	baseURL    string
	httpClient *http.Client

	// report_timestamp of every node seen by the last ListNodes call
	reportTimestamps map[string]time.Time
}

type pdbNode struct {
	Certname        string  `json:"certname"`
	ReportTimestamp *string `json:"report_timestamp"`
}

type pdbReport struct {
	Certname          string  `json:"certname"`
	Status            string  `json:"status"`
	ProducerTimestamp *string `json:"producer_timestamp"`
	EndTime           *string `json:"end_time"`
}

// NewPuppetDB builds a client from host, port and optional TLS material.
// HTTPS is used as soon as a CA or client certificate is configured.
func NewPuppetDB(cfg PuppetDBConfig) (*PuppetDB, error) {
	client, err := buildHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	scheme := "http"
	if cfg.CAFile != "" || cfg.CertFile != "" {
		scheme = "https"
	}
	base := cfg.Host
	if !strings.Contains(base, "://") {
		base = scheme + "://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}
	return NewPuppetDBWithClient(base, client), nil
}

// NewPuppetDBWithClient uses baseURL as-is, e.g. "http://puppetdb:8080".
func NewPuppetDBWithClient(baseURL string, client *http.Client) *PuppetDB {
	return &PuppetDB{
		baseURL:          strings.TrimRight(baseURL, "/"),
		httpClient:       client,
		reportTimestamps: make(map[string]time.Time),
	}
}

func (p *PuppetDB) Name() string { return "puppetdb" }

// BaseURL returns the client's base URL.
func (p *PuppetDB) BaseURL() string { return p.baseURL }

func (p *PuppetDB) ListNodes(ctx context.Context) ([]string, error) {
	var nodes []pdbNode
	if err := p.get(ctx, nodesPath, nil, &nodes); err != nil {
		return nil, connErr(p.Name(), "list nodes", err)
	}

	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.Certname)
		if n.ReportTimestamp == nil {
			continue
		}
		ts, err := parseTimestamp(*n.ReportTimestamp)
		if err != nil {
			return nil, connErr(p.Name(), "list nodes", fmt.Errorf("node %s: %w", n.Certname, err))
		}
		p.reportTimestamps[n.Certname] = ts
	}
	return names, nil
}

// LatestReports asks for the reports of node flagged latest_report?.
// The node's report_timestamp from the nodes listing wins over the report's
// own producer_timestamp, which in turn wins over end_time.
func (p *PuppetDB) LatestReports(ctx context.Context, node string) ([]Report, error) {
	q, err := latestReportQuery(node)
	if err != nil {
		return nil, err
	}

	var reports []pdbReport
	if err := p.get(ctx, reportsPath, url.Values{"query": {q}}, &reports); err != nil {
		return nil, connErr(p.Name(), "query reports", err)
	}

	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		ts, ok := p.reportTimestamps[node]
		if !ok {
			raw := r.ProducerTimestamp
			if raw == nil {
				raw = r.EndTime
			}
			if raw != nil {
				ts, err = parseTimestamp(*raw)
				if err != nil {
					return nil, connErr(p.Name(), "query reports", fmt.Errorf("node %s: %w", node, err))
				}
			}
		}
		out = append(out, Report{Status: r.Status, Timestamp: ts})
	}
	return out, nil
}

func (p *PuppetDB) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// latestReportQuery renders the PuppetDB AST query
// ["and",["=","certname",node],["=","latest_report?",true]].
func latestReportQuery(node string) (string, error) {
	ast := []any{"and",
		[]any{"=", "certname", node},
		[]any{"=", "latest_report?", true},
	}
	data, err := json.Marshal(ast)
	if err != nil {
		return "", fmt.Errorf("puppetdb query for %s: %w", node, err)
	}
	return string(data), nil
}

func (p *PuppetDB) get(ctx context.Context, path string, query url.Values, result any) error {
	u := p.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("puppetdb GET %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("puppetdb GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	return decode(resp, result)
}

func decode(resp *http.Response, result any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("puppetdb read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("puppetdb HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("puppetdb decode: %w", err)
	}
	return nil
}

func buildHTTPClient(cfg PuppetDBConfig) (*http.Client, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.Insecure} //nolint:gosec
	if cfg.CAFile != "" {
		caCertPool := x509.NewCertPool()
		caData, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		if !caCertPool.AppendCertsFromPEM(caData) {
			return nil, fmt.Errorf("read ca file: no certificates in %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = caCertPool
	}
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
	}, nil
}
