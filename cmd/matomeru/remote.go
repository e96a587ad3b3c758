package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/matomeru/internal/cli"
	"github.com/hyperjump/matomeru/internal/models"
)

// client talks to a running matomeru server.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// do sends body as JSON and decodes a 2xx response into out. Error responses are
// returned with the server's message.
func (c *client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *client) addItem(input models.ItemInput, replace bool) (*models.PartitionResponse, error) {
	var out models.PartitionResponse
	var err error
	if replace {
		id := *input.ID
		input.ID = nil
		err = c.do(http.MethodPut, "/api/v1/items/"+strconv.Itoa(id), input, &out)
	} else {
		err = c.do(http.MethodPost, "/api/v1/items", input, &out)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) removeItem(id int, replace bool) (*models.PartitionResponse, error) {
	path := "/api/v1/items/" + strconv.Itoa(id)
	if replace {
		path += "?replace=true"
	}
	var out models.PartitionResponse
	if err := c.do(http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) clusters() (*models.PartitionResponse, error) {
	var out models.PartitionResponse
	if err := c.do(http.MethodGet, "/api/v1/clusters", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) threshold() (float64, error) {
	var out models.ThresholdInput
	if err := c.do(http.MethodGet, "/api/v1/threshold", nil, &out); err != nil {
		return 0, err
	}
	return out.Threshold, nil
}

func (c *client) setThreshold(t float64) (*models.PartitionResponse, error) {
	var out models.PartitionResponse
	if err := c.do(http.MethodPut, "/api/v1/threshold", models.ThresholdInput{Threshold: t}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) status() (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.do(http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// configPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func configPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// serverURLFromConfig returns the base URL of the server configured at path, or
// defaultServerURL when no config can be loaded.
func serverURLFromConfig(path string) string {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return defaultServerURL
	}
	return cfg.Server.BaseURL()
}

// remoteFlags registers the flags shared by the remote commands.
func remoteFlags(name string, args []string) (fs *flag.FlagSet, serverURL, output *string) {
	fs = flag.NewFlagSet(name, flag.ExitOnError)
	fs.String("config", defaultConfigPath, "config file path (for the server address)")
	serverURL = fs.String("server", serverURLFromConfig(configPathFromArgs(args, defaultConfigPath)), "server URL")
	output = fs.String("output", "text", "output format: text, compact or json")
	return fs, serverURL, output
}

func printPartition(p *models.PartitionResponse, output string) error {
	format, err := cli.ParseOutputFormat(output)
	if err != nil {
		return err
	}
	return cli.PrintReport(&cli.Report{Items: len(p.IDs), Partition: *p}, format)
}

func runAdd(args []string) error {
	args = reorderArgs(args)
	fs, serverURL, output := remoteFlags("add", args)
	id := fs.Int("id", -1, "item id (required)")
	title := fs.String("title", "", "item title")
	kind := fs.String("kind", "", "item kind: page (default) or note")
	pageURL := fs.String("url", "", "page URL; pages on title-only hosts are embedded by title")
	replace := fs.Bool("replace", false, "replace the text of a live item")
	_ = fs.Parse(args)

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if *id < 0 {
		fmt.Println("Usage: matomeru add --id <id> [--title <title>] [--kind page|note] [--url <url>] [--replace] <text>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	input := models.ItemInput{ID: id, Title: *title, Content: text, Kind: *kind, URL: *pageURL}
	p, err := newClient(*serverURL).addItem(input, *replace)
	if err != nil {
		return err
	}
	return printPartition(p, *output)
}

func runRemove(args []string) error {
	args = reorderArgs(args)
	fs, serverURL, output := remoteFlags("remove", args)
	replace := fs.Bool("replace", false, "open a replace; the partition is emitted when the item is added again")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Println("Usage: matomeru remove [--replace] <id>")
		os.Exit(1)
	}
	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid id %q", fs.Arg(0))
	}
	p, err := newClient(*serverURL).removeItem(id, *replace)
	if err != nil {
		return err
	}
	return printPartition(p, *output)
}

func runThreshold(args []string) error {
	args = reorderArgs(args)
	fs, serverURL, output := remoteFlags("threshold", args)
	_ = fs.Parse(args)

	c := newClient(*serverURL)
	if fs.NArg() == 0 {
		t, err := c.threshold()
		if err != nil {
			return err
		}
		fmt.Printf("threshold: %.4f\n", t)
		return nil
	}
	t, err := strconv.ParseFloat(fs.Arg(0), 64)
	if err != nil {
		return fmt.Errorf("invalid threshold %q", fs.Arg(0))
	}
	p, err := c.setThreshold(t)
	if err != nil {
		return err
	}
	return printPartition(p, *output)
}

func runClusters(args []string) error {
	fs, serverURL, output := remoteFlags("clusters", args)
	_ = fs.Parse(args)

	p, err := newClient(*serverURL).clusters()
	if err != nil {
		return err
	}
	return printPartition(p, *output)
}

func runStatus(args []string) error {
	fs, serverURL, output := remoteFlags("status", args)
	_ = fs.Parse(args)

	status, err := newClient(*serverURL).status()
	if err != nil {
		return err
	}
	return writeStatus(os.Stdout, status, *output)
}

func writeStatus(w io.Writer, status *models.StatusResponse, output string) error {
	if output == string(cli.OutputJSON) {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(w, "instance:    %s\n", status.InstanceID)
	fmt.Fprintf(w, "state:       %s\n", status.State)
	fmt.Fprintf(w, "items:       %d\n", status.Items)
	fmt.Fprintf(w, "clusters:    %d\n", status.Clusters)
	fmt.Fprintf(w, "threshold:   %.4f\n", status.Threshold)
	fmt.Fprintf(w, "top_k:       %d\n", status.TopK)
	fmt.Fprintf(w, "dimensions:  %d\n", status.Dimensions)
	fmt.Fprintf(w, "uptime:      %s\n", time.Duration(status.UptimeSeconds)*time.Second)
	if len(status.Replacing) > 0 {
		fmt.Fprintf(w, "replacing:   %v\n", status.Replacing)
	}
	for _, d := range status.Directories {
		fmt.Fprintf(w, "watching:    %s\n", d)
	}
	return nil
}
