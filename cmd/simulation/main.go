package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fatih/color"
)

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

type chatResponse struct {
	RequestID   string `json:"request_id"`
	Response    string `json:"response"`
	Error       string `json:"error"`
	Success     bool   `json:"success"`
	MemoryStats struct {
		ShortTermMessages     int  `json:"short_term_messages"`
		UserPreferencesLoaded bool `json:"user_preferences_loaded"`
		ConversationSummaries int  `json:"conversation_summaries"`
	} `json:"memory_stats"`
	Timing struct {
		TotalSeconds           float64 `json:"total_seconds"`
		GraphProcessingSeconds float64 `json:"graph_processing_seconds"`
	} `json:"timing"`
}

type scenario struct {
	title string
	turns []string
}

var scenarios = []scenario{
	{"Greeting takes the direct path", []string{"xin chào", "hello there"}},
	{"Knowledge question retrieves context", []string{"Chính sách hoàn tiền của công ty là gì?"}},
	{"Follow-up uses short-term memory", []string{"Tài liệu của tôi nói gì về hợp đồng?", "Còn điều khoản chấm dứt thì sao?"}},
	{"Farewell", []string{"cảm ơn, tạm biệt"}},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "service base URL")
	userID := flag.String("user", "sim_user", "user id sent with every turn")
	reset := flag.Bool("reset", true, "clear the user's memory before running")
	flag.Parse()

	color.Cyan("🚀 Agentic RAG simulation against %s as %s\n", *baseURL, *userID)

	if err := checkHealth(*baseURL); err != nil {
		color.Red("Health check failed: %v", err)
		return
	}

	if *reset {
		if err := do(http.MethodDelete, *baseURL+"/memory/"+*userID+"?type=all", nil, nil); err != nil {
			color.Red("Failed to reset memory: %v", err)
		}
	}

	for i, sc := range scenarios {
		color.Yellow("\n[%d] %s", i+1, sc.title)
		for _, turn := range sc.turns {
			fmt.Printf("USER: %s\n", turn)

			start := time.Now()
			var res chatResponse
			err := do(http.MethodPost, *baseURL+"/chat", chatRequest{Message: turn, UserID: *userID}, &res)
			elapsed := time.Since(start)

			switch {
			case err != nil:
				color.Red("Failed: %v", err)
			case !res.Success:
				color.Red("AI (%s, %v): %s%s", res.RequestID, elapsed.Round(time.Millisecond), res.Response, res.Error)
			default:
				color.Green("AI (%s, %v): %s", res.RequestID, elapsed.Round(time.Millisecond), res.Response)
				color.HiBlack("   memory: short_term=%d summaries=%d prefs=%v graph=%.3fs",
					res.MemoryStats.ShortTermMessages,
					res.MemoryStats.ConversationSummaries,
					res.MemoryStats.UserPreferencesLoaded,
					res.Timing.GraphProcessingSeconds)
			}
		}
	}

	var perf map[string]interface{}
	color.Yellow("\n[perf] Sequential vs parallel retrieval")
	if err := do(http.MethodPost, *baseURL+"/test/performance", map[string]string{"search_query": "refund policy", "user_id": *userID}, &perf); err != nil {
		color.Red("Failed: %v", err)
		return
	}
	pretty, _ := json.MarshalIndent(perf["performance_test"], "", "  ")
	fmt.Println(string(pretty))
}

func checkHealth(baseURL string) error {
	var health struct {
		Status string `json:"status"`
		Graph  string `json:"graph"`
	}
	if err := do(http.MethodGet, baseURL+"/health", nil, &health); err != nil {
		return err
	}
	if health.Status == "ok" {
		color.Green("Status: %s (graph %s)", health.Status, health.Graph)
	} else {
		color.Yellow("Status: %s (graph %s)", health.Status, health.Graph)
	}
	return nil
}

func do(method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusInternalServerError {
		return fmt.Errorf("API Error %d: %s", resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
