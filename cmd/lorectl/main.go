package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	server := flag.String("server", "http://localhost:8000", "LoreVault server URL")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "index":
		cmdIndex(*server, rest)
	case "index-dir":
		cmdIndexDir(*server, rest)
	case "search":
		cmdSearch(*server, rest)
	case "ask":
		cmdAsk(*server, rest)
	case "models":
		cmdModels(*server)
	case "config":
		cmdConfig(*server, rest)
	case "recommend":
		cmdRecommend(*server)
	case "usage":
		cmdUsage(*server)
	default:
		printError("unknown command: %s", cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: lorectl [-server URL] <command> [args]

Commands:
  index <file>                     index a local file
  index-dir <directory>            index a directory on the server host
  search [-limit N] [-type T] <query>
  ask [-window N] [-max-length N] [-temperature T] [-no-follow-up] <question>
  models                           list installed backend models
  config                           show the generation backend settings
  config set [-model M] [-window N] [-base-url U]
  recommend                        show the context window recommendation
  usage                            show recent context usage history`)
}

func cmdIndex(server string, args []string) {
	if len(args) != 1 {
		printError("usage: lorectl index <file>")
		os.Exit(2)
	}
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		printError("read %s: %v", path, err)
		os.Exit(1)
	}

	var resp struct {
		ID       string `json:"id"`
		FilePath string `json:"file_path"`
	}
	if !postJSON(server+"/api/index", map[string]string{
		"file_path": path,
		"content":   string(data),
	}, &resp, 30*time.Second) {
		os.Exit(1)
	}
	fmt.Printf("indexed %s (%s)\n", resp.FilePath, resp.ID)
}

func cmdIndexDir(server string, args []string) {
	if len(args) != 1 {
		printError("usage: lorectl index-dir <directory>")
		os.Exit(2)
	}
	var resp struct {
		Indexed int      `json:"indexed"`
		Failed  int      `json:"failed"`
		Errors  []string `json:"errors"`
	}
	if !postJSON(server+"/api/index/directory", map[string]string{
		"directory": args[0],
	}, &resp, 10*time.Minute) {
		os.Exit(1)
	}
	fmt.Printf("indexed %d files, %d failed\n", resp.Indexed, resp.Failed)
	for _, e := range resp.Errors {
		fmt.Fprintf(os.Stderr, "  %s\n", e)
	}
}

func cmdSearch(server string, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	limit := fs.Int("limit", 5, "maximum number of results")
	fileType := fs.String("type", "", "restrict to a file type (py, md, go, ...)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		printError("usage: lorectl search [-limit N] [-type T] <query>")
		os.Exit(2)
	}

	var resp struct {
		Results []struct {
			FilePath string  `json:"file_path"`
			FileType string  `json:"file_type"`
			Score    float64 `json:"score"`
			Content  string  `json:"content"`
		} `json:"results"`
	}
	if !postJSON(server+"/api/search", map[string]interface{}{
		"query":     fs.Arg(0),
		"limit":     *limit,
		"file_type": *fileType,
	}, &resp, 30*time.Second) {
		os.Exit(1)
	}
	if len(resp.Results) == 0 {
		fmt.Println("No results.")
		return
	}
	for i, r := range resp.Results {
		preview := r.Content
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		fmt.Printf("\033[36m%d. %s\033[0m (%s, %.1f%%)\n%s\n\n", i+1, r.FilePath, r.FileType, r.Score*100, preview)
	}
}

func cmdAsk(server string, args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	windowSize := fs.Int("window", 0, "context window override for this question")
	maxLength := fs.Int("max-length", 0, "maximum answer length in tokens")
	temperature := fs.Float64("temperature", -1, "sampling temperature (0 for greedy)")
	noFollowUp := fs.Bool("no-follow-up", false, "disable the follow-up suggestion note")
	fs.Parse(args)
	if fs.NArg() != 1 {
		printError("usage: lorectl ask [-window N] [-max-length N] [-temperature T] [-no-follow-up] <question>")
		os.Exit(2)
	}

	var resp struct {
		Kind   string `json:"kind"`
		Answer string `json:"answer"`
		Stats  struct {
			ContextWindow        int     `json:"context_window"`
			ContextUsagePercent  float64 `json:"context_usage_percent"`
			ContextDocumentsUsed int     `json:"context_documents_used"`
			ContextTruncated     bool    `json:"context_truncated"`
		} `json:"stats"`
	}
	body := map[string]interface{}{
		"question":       fs.Arg(0),
		"context_window": *windowSize,
		"max_length":     *maxLength,
		"no_follow_up":   *noFollowUp,
	}
	if *temperature >= 0 {
		body["temperature"] = *temperature
	}
	if !postJSON(server+"/api/ask", body, &resp, 11*time.Minute) {
		os.Exit(1)
	}

	fmt.Println(resp.Answer)
	note := fmt.Sprintf("window %d, usage %.1f%%, %d documents",
		resp.Stats.ContextWindow, resp.Stats.ContextUsagePercent, resp.Stats.ContextDocumentsUsed)
	if resp.Stats.ContextTruncated {
		note += ", truncated"
	}
	fmt.Printf("\033[90m[%s]\033[0m\n", note)
}

func cmdModels(server string) {
	var resp struct {
		Models []string `json:"models"`
	}
	if !getInto(server+"/api/models", &resp) {
		os.Exit(1)
	}
	if len(resp.Models) == 0 {
		fmt.Println("No models installed.")
		return
	}
	for _, m := range resp.Models {
		fmt.Println(m)
	}
}

func cmdConfig(server string, args []string) {
	if len(args) == 0 {
		var resp map[string]interface{}
		if !getInto(server+"/api/config/llm", &resp) {
			os.Exit(1)
		}
		printKV(resp)
		return
	}
	if args[0] != "set" {
		printError("usage: lorectl config [set ...]")
		os.Exit(2)
	}

	fs := flag.NewFlagSet("config set", flag.ExitOnError)
	model := fs.String("model", "", "generation model name")
	windowSize := fs.Int("window", 0, "context window size in tokens")
	baseURL := fs.String("base-url", "", "backend base URL")
	fs.Parse(args[1:])

	body := map[string]interface{}{}
	if *model != "" {
		body["model"] = *model
	}
	if *windowSize != 0 {
		body["context_window"] = *windowSize
	}
	if *baseURL != "" {
		body["base_url"] = *baseURL
	}
	if len(body) == 0 {
		printError("nothing to set")
		os.Exit(2)
	}

	b, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPut, server+"/api/config/llm", bytes.NewReader(b))
	if err != nil {
		printError("request: %v", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 30 * time.Second}
	httpResp, err := client.Do(req)
	if err != nil {
		printError("request failed: %v", err)
		os.Exit(1)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(httpResp.Body)
		printError("server error (%d): %s", httpResp.StatusCode, string(data))
		os.Exit(1)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		printError("parse response: %v", err)
		os.Exit(1)
	}
	if resp["snapped"] == true {
		fmt.Printf("note: %v is not a valid window size, snapped to %v\n",
			resp["requested_window"], resp["context_window"])
	}
	printKV(resp)
}

func cmdRecommend(server string) {
	var resp struct {
		CurrentWindow  int    `json:"current_window"`
		HistorySize    int    `json:"history_size"`
		Reason         string `json:"reason"`
		Recommendation *struct {
			Size       int    `json:"size"`
			Reason     string `json:"reason"`
			Confidence string `json:"confidence"`
		} `json:"recommendation"`
	}
	if !getInto(server+"/api/config/recommendation", &resp) {
		os.Exit(1)
	}
	fmt.Printf("current window: %d (%d recorded queries)\n", resp.CurrentWindow, resp.HistorySize)
	if resp.Recommendation == nil {
		fmt.Println("no recommendation:", resp.Reason)
		return
	}
	fmt.Printf("\033[33mrecommend %d\033[0m (%s confidence)\n%s\n",
		resp.Recommendation.Size, resp.Recommendation.Confidence, resp.Recommendation.Reason)
}

func cmdUsage(server string) {
	var resp struct {
		Entries []struct {
			Timestamp    time.Time `json:"timestamp"`
			UsagePercent float64   `json:"context_usage_percent"`
			Truncated    bool      `json:"context_truncated"`
			Window       int       `json:"context_window"`
		} `json:"entries"`
	}
	if !getInto(server+"/api/usage", &resp) {
		os.Exit(1)
	}
	if len(resp.Entries) == 0 {
		fmt.Println("No usage recorded yet.")
		return
	}
	for _, e := range resp.Entries {
		mark := ""
		if e.Truncated {
			mark = " \033[31mtruncated\033[0m"
		}
		fmt.Printf("%s  %6.1f%%  window %d%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04"), e.UsagePercent, e.Window, mark)
	}
}

func postJSON(url string, body interface{}, out interface{}, timeout time.Duration) bool {
	b, _ := json.Marshal(body)
	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		printError("request failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		printError("server error (%d): %s", resp.StatusCode, string(data))
		return false
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		printError("parse response: %v", err)
		return false
	}
	return true
}

func getInto(url string, out interface{}) bool {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		printError("request failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		printError("server error (%d): %s", resp.StatusCode, string(data))
		return false
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		printError("parse response: %v", err)
		return false
	}
	return true
}

func printKV(m map[string]interface{}) {
	for k, v := range m {
		fmt.Printf("%s: %v\n", k, v)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
