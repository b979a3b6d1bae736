package worker

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/herald-ai/herald/pkg/models"
)

// ClaudeConfig contains configuration for the Claude-backed invoker.
type ClaudeConfig struct {
	// Model is the Claude model to use. Defaults to Sonnet.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock switches from the direct API to AWS Bedrock.
	UseAWSBedrock bool
	// AWSRegion is the Bedrock region (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name.
	AWSProfile string
	// MaxTokens caps the response length per worker call.
	MaxTokens int64
}

// ClaudeInvoker implements Invoker against the Anthropic Messages API. Each
// dispatch composes the worker's persona and the full context view into one
// prompt; the response text is the stage artifact. Calls are stateless on
// the API side, so re-invocation with identical inputs is safe.
type ClaudeInvoker struct {
	client anthropic.Client
	model  anthropic.Model
	max    int64
}

// NewClaudeInvoker creates a ClaudeInvoker from config.
func NewClaudeInvoker(cfg ClaudeConfig) (*ClaudeInvoker, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	max := cfg.MaxTokens
	if max <= 0 {
		max = 8192
	}

	return &ClaudeInvoker{
		client: anthropic.NewClient(opts...),
		model:  model,
		max:    max,
	}, nil
}

// Invoke implements Invoker.
func (c *ClaudeInvoker) Invoke(ctx context.Context, desc models.WorkerDescriptor, view []models.ContextEntry, req models.Request) (string, map[string]string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.max,
		System: []anthropic.TextBlockParam{
			{Text: desc.Persona},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(desc, view, req))),
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("API call failed: %w", err)
	}

	var artifact strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			artifact.WriteString(variant.Text)
		}
	}

	metadata := map[string]string{
		"model":         string(c.model),
		"input_tokens":  strconv.FormatInt(resp.Usage.InputTokens, 10),
		"output_tokens": strconv.FormatInt(resp.Usage.OutputTokens, 10),
	}

	return artifact.String(), metadata, nil
}

// buildPrompt assembles the user prompt: the original request, the full
// accumulated context in write order, and the worker's output contract.
// Every worker sees the whole history, never a partial slice.
func buildPrompt(desc models.WorkerDescriptor, view []models.ContextEntry, req models.Request) string {
	var b strings.Builder

	b.WriteString("ORIGINAL REQUEST:\n")
	b.WriteString(req.Text)
	b.WriteString("\n")

	if len(view) > 0 {
		b.WriteString("\nACCUMULATED CONTEXT (earlier stages, in order):\n")
		for _, entry := range view {
			if entry.Gap {
				fmt.Fprintf(&b, "\n--- stage %d / %s: NOT AVAILABLE (%s) ---\n",
					entry.StageIndex, entry.Worker, entry.GapReason)
				continue
			}
			fmt.Fprintf(&b, "\n--- stage %d / %s ---\n%s\n", entry.StageIndex, entry.Worker, entry.Artifact)
		}
	}

	b.WriteString("\nYOUR TASK:\n")
	if desc.Accepts != "" {
		fmt.Fprintf(&b, "Input contract: %s\n", desc.Accepts)
	}
	if desc.Produces != "" {
		fmt.Fprintf(&b, "Output contract: %s\n", desc.Produces)
	}
	b.WriteString("Produce your output now.\n")

	return b.String()
}
