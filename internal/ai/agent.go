package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	openRouterURL       = "https://openrouter.ai/api/v1"
	defaultMaxRows      = 50
	defaultQueryTimeout = 20 * time.Second
)

// AgentConfig configures an Agent. The ClickHouse and OpenRouter settings
// come from config.Config.
type AgentConfig struct {
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	OpenRouterAPIKey string
	Model            string

	// MaxRows caps how many result rows reach the answer prompt.
	MaxRows      int
	QueryTimeout time.Duration

	Logger *logrus.Logger
}

// Agent answers questions about recorded trades. The model writes a query
// over the ClickHouse mirror, the agent checks and scopes it, runs it, and
// has the model summarise the rows.
type Agent struct {
	llm      llms.Model
	rows     Querier
	database string
	maxRows  int
	logger   *logrus.Logger
	closer   func() error
}

// AskResult is what Ask produced. SQL is the statement that actually ran,
// scope filter included.
type AskResult struct {
	SQL       string
	Answer    string
	Rows      int
	Truncated bool
}

func NewAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	if cfg.OpenRouterAPIKey == "" {
		return nil, errors.New("OPENROUTER_API_KEY is required")
	}
	if cfg.ClickHouseAddr == "" {
		return nil, errors.New("CLICKHOUSE_ADDR is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.ClickHouseDatabase == "" {
		cfg.ClickHouseDatabase = DefaultDatabase
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}

	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL(openRouterURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("openrouter client: %w", err)
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		},
	})
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	a := newAgent(llm, &clickhouseQuerier{db: db, timeout: int(cfg.QueryTimeout.Seconds())}, cfg)
	a.closer = db.Close
	a.logger.WithFields(logrus.Fields{
		"database": cfg.ClickHouseDatabase,
		"model":    cfg.Model,
	}).Info("trade agent ready")
	return a, nil
}

func newAgent(llm llms.Model, q Querier, cfg AgentConfig) *Agent {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.ClickHouseDatabase == "" {
		cfg.ClickHouseDatabase = DefaultDatabase
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = defaultMaxRows
	}
	return &Agent{
		llm:      llm,
		rows:     q,
		database: cfg.ClickHouseDatabase,
		maxRows:  cfg.MaxRows,
		logger:   cfg.Logger,
	}
}

func (a *Agent) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

// Ask answers question using only the trades inside scope.
func (a *Agent) Ask(ctx context.Context, question string, scope Scope) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question is empty")
	}

	raw, err := llms.GenerateFromSinglePrompt(ctx, a.llm, sqlPrompt(a.database, scope, question), llms.WithMaxTokens(400))
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}
	query := cleanSQL(raw)
	if err := checkSQL(query, a.database); err != nil {
		a.logger.WithField("sql", query).Warn("rejected generated sql")
		return nil, err
	}
	query = scopeSQL(query, a.database, scope)

	log := a.logger.WithFields(logrus.Fields{"sql": query, "scope": scope.String()})
	log.Debug("running trade query")

	rows, truncated, err := a.rows.Query(ctx, query, a.maxRows)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}

	answer, err := llms.GenerateFromSinglePrompt(ctx, a.llm, answerPrompt(question, query, string(data), truncated, scope), llms.WithMaxTokens(400))
	if err != nil {
		return nil, fmt.Errorf("summarise rows: %w", err)
	}
	log.WithField("rows", len(rows)).Debug("answered trade question")

	return &AskResult{
		SQL:       query,
		Answer:    strings.TrimSpace(answer),
		Rows:      len(rows),
		Truncated: truncated,
	}, nil
}
