// Command tail follows a broker's event stream and prints one line per
// event. It treats timeouts, connection failures, and bad statuses as
// transient: it reconnects forever, resuming from the last sequence
// number it saw, and stops only on interrupt.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/0ppliger/oam-broker/internal/util"
	"github.com/0ppliger/oam-broker/pkg/logger"
	"github.com/0ppliger/oam-broker/pkg/logger/console"
)

const maxBackoff = 30 * time.Second

func main() {
	util.LoadEnv()
	logger.Init(console.New(console.Params{
		Debug: util.GetEnvBool("DEBUG", false),
	}))

	baseURL := util.GetEnvString("BROKER_URL", "http://localhost:8080")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lastSeq uint64
	backoff := time.Second
	for {
		err := listen(ctx, baseURL, &lastSeq)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("Stream disconnected, reconnecting", "err", err, "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

// listen holds one stream open and prints events until it breaks.
// lastSeq tracks the resume point across reconnects.
func listen(ctx context.Context, baseURL string, lastSeq *uint64) error {
	url := baseURL + "/listen"
	if *lastSeq > 0 {
		url = fmt.Sprintf("%s?from_seq=%d", url, *lastSeq+1)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	logger.Info("Listening", "url", url)

	var event, id, data string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event != "" {
				fmt.Printf("%s\t%s\t%s\n", id, event, data)
				if seq, err := strconv.ParseUint(id, 10, 64); err == nil {
					*lastSeq = seq
				}
			}
			event, id, data = "", "", ""
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "id: "):
			id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream closed by server")
}
