package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"testme/internal/config"
	"testme/internal/process"
)

// ErrHealthTimeout is returned when a health check did not pass in time
var ErrHealthTimeout = errors.New("health check timed out")

// Checker is one readiness probe attempt
type Checker interface {
	Check(ctx context.Context) error
}

// NewChecker builds the probe for hc. Script checks run in dir with env.
func NewChecker(hc *config.HealthCheck, dir string, env []string) (Checker, error) {
	switch hc.Type {
	case config.HealthHTTP:
		if hc.URL == "" {
			return nil, errors.New("http health check needs a url")
		}
		return &httpChecker{
			url:            hc.URL,
			expectedStatus: hc.ExpectedStatus,
			expectedBody:   hc.ExpectedBody,
			client:         &http.Client{Transport: &http.Transport{DisableKeepAlives: true}},
		}, nil
	case config.HealthTCP:
		if hc.Port <= 0 {
			return nil, errors.New("tcp health check needs a port")
		}
		return &tcpChecker{address: net.JoinHostPort(hc.Host, strconv.Itoa(hc.Port))}, nil
	case config.HealthScript:
		if hc.Command == "" {
			return nil, errors.New("script health check needs a command")
		}
		cmd, err := BuildCommand(hc.Command, dir, env)
		if err != nil {
			return nil, err
		}
		return &scriptChecker{cmd: cmd, expectedExit: hc.ExpectedExit}, nil
	case config.HealthFile:
		if hc.Path == "" {
			return nil, errors.New("file health check needs a path")
		}
		return &fileChecker{path: hc.Path}, nil
	case config.HealthMySQL:
		if _, err := mysql.ParseDSN(hc.DSN); err != nil {
			return nil, fmt.Errorf("mysql health check: %w", err)
		}
		return &mysqlChecker{dsn: hc.DSN}, nil
	}
	return nil, fmt.Errorf("unknown health check type %q", hc.Type)
}

type httpChecker struct {
	url            string
	expectedStatus int
	expectedBody   string
	client         *http.Client
}

func (c *httpChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != c.expectedStatus {
		return fmt.Errorf("status %d, expected %d", resp.StatusCode, c.expectedStatus)
	}
	if c.expectedBody == "" {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if !strings.Contains(string(body), c.expectedBody) {
		return fmt.Errorf("body does not contain %q", c.expectedBody)
	}
	return nil
}

type tcpChecker struct {
	address string
}

func (c *tcpChecker) Check(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return err
	}
	return conn.Close()
}

type scriptChecker struct {
	cmd          process.Command
	expectedExit int
}

func (c *scriptChecker) Check(ctx context.Context) error {
	res := process.Run(ctx, c.cmd, 0)
	if res.Err != nil {
		return res.Err
	}
	if res.ExitCode != c.expectedExit {
		return fmt.Errorf("exit code %d, expected %d", res.ExitCode, c.expectedExit)
	}
	return nil
}

type fileChecker struct {
	path string
}

func (c *fileChecker) Check(context.Context) error {
	_, err := os.Stat(c.path)
	return err
}

type mysqlChecker struct {
	dsn string
}

func (c *mysqlChecker) Check(ctx context.Context) error {
	db, err := sql.Open("mysql", c.dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}

// Poll runs check every interval until it passes or timeout elapses. Each
// attempt is bounded by the time left. It returns the number of attempts.
func Poll(ctx context.Context, check Checker, interval, timeout time.Duration) (int, error) {
	start := time.Now()
	deadline := start.Add(timeout)
	attempts := 0
	for {
		attempts++
		attemptCtx, cancel := context.WithDeadline(ctx, deadline)
		err := check.Check(attemptCtx)
		cancel()
		if err == nil {
			return attempts, nil
		}
		if ctx.Err() != nil {
			return attempts, ctx.Err()
		}

		elapsed := time.Since(start)
		if elapsed >= timeout {
			return attempts, fmt.Errorf("%w after %s (%d attempts): %v",
				ErrHealthTimeout, elapsed.Round(time.Millisecond), attempts, err)
		}

		wait := min(interval, timeout-elapsed)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempts, ctx.Err()
		case <-timer.C:
		}
	}
}
