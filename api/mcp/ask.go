package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/physrag/pkg/answer"
)

var (
	askToolName    = "ask"
	askDescription = "Answer a question using only the indexed physics papers. The answer cites passages as [Source N], numbered in the order of the returned sources."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed papers"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Question string          `json:"question"`
	Answer   string          `json:"answer"`
	Sources  []answer.Source `json:"sources"`
}

// handleAsk answers a question. A generation failure is reported as a tool
// error that still carries the retrieved sources.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger
	logger.Debug("MCP ask request", "question", input.Question)

	result, err := s.config.Asker.Ask(ctx, input.Question)
	if err != nil {
		logger.Error("MCP ask failed", "error", err)
		if errors.Is(err, answer.ErrGeneration) && result != nil {
			res, out, _ := jsonResult(logger, AskOutput{
				Question: result.Question,
				Sources:  result.Sources,
			})
			res.IsError = true
			res.Content = append([]mcp.Content{&mcp.TextContent{Text: answer.UserMessage(err)}}, res.Content...)
			return res, out, nil
		}
		return errorResult(answer.UserMessage(err)), AskOutput{}, nil
	}

	return jsonResult(logger, AskOutput{
		Question: result.Question,
		Answer:   result.Text,
		Sources:  result.Sources,
	})
}
