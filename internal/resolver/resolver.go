// Package resolver turns an inbound request plus the current configuration
// into a fully resolved execution plan for the two pipeline stages.
//
// Each field (endpoint, token, model, params) is resolved independently
// through a fixed precedence ladder:
//
//  1. request header (X-<Backend>-Endpoint-URL, X-<Backend>-API-Token) or the
//     request-body <backend>_config block; the header wins on conflict
//  2. per-API-key mapping from [api_keys.<key>]
//  3. model-alias mapping keyed by the request's "model" field
//  4. global defaults from [endpoints], [models], [tokens]
package resolver

import (
	"net/http"
	"strings"

	"deepclaude-go/internal/config"
	apperrors "deepclaude-go/internal/errors"
	"github.com/tidwall/gjson"
)

// BackendPlan carries everything one upstream call needs.
type BackendPlan struct {
	Backend  string
	Endpoint string
	Token    string
	Model    string
	Params   map[string]interface{}
}

// Plan is the resolved execution plan for one request.
type Plan struct {
	Reasoning BackendPlan
	Answer    BackendPlan
	Stream    bool
	Verbose   bool
	System    string
	Messages  []Message
}

// Header names understood on the inbound request.
const (
	HeaderTargetModel      = "X-Target-Model"
	HeaderReasoningBackend = "X-Reasoning-Backend"
)

var headerBackendNames = map[string]string{
	config.BackendDeepSeek:  "DeepSeek",
	config.BackendOpenAI:    "OpenAI",
	config.BackendAnthropic: "Anthropic",
}

// backendHeader builds the per-backend header name, e.g.
// ("deepseek", "API-Token") -> "X-DeepSeek-API-Token".
func backendHeader(backend, suffix string) string {
	name, ok := headerBackendNames[backend]
	if !ok {
		name = strings.ToUpper(backend[:1]) + backend[1:]
	}
	return "X-" + name + "-" + suffix
}

// Resolve builds the execution plan. It is a pure function of its inputs and
// performs no I/O.
func Resolve(cfg *config.FileConfig, hdr http.Header, body []byte, apiKey string) (*Plan, *apperrors.APIError) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.InvalidRequest("Request body is not valid JSON")
	}

	messages, err := parseMessages(body)
	if err != nil {
		return nil, err
	}

	reasoningID := strings.TrimSpace(hdr.Get(HeaderReasoningBackend))
	if reasoningID == "" {
		reasoningID = config.BackendDeepSeek
	} else if _, ok := cfg.Endpoints[reasoningID]; !ok {
		return nil, apperrors.UnknownBackend(reasoningID)
	}

	targetID := strings.TrimSpace(hdr.Get(HeaderTargetModel))
	if targetID == "" {
		targetID = cfg.Server.DefaultTarget
	} else if _, ok := cfg.Endpoints[targetID]; !ok {
		return nil, apperrors.UnknownBackend(targetID)
	}

	requestModel := gjson.GetBytes(body, "model").String()
	alias, hasAlias := cfg.Aliases[requestModel]

	reasoning, err := resolveBackend(cfg, hdr, body, apiKey, reasoningID, true, alias, hasAlias, requestModel)
	if err != nil {
		return nil, err
	}
	answer, err := resolveBackend(cfg, hdr, body, apiKey, targetID, false, alias, hasAlias, requestModel)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Reasoning: reasoning,
		Answer:    answer,
		Stream:    gjson.GetBytes(body, "stream").Bool(),
		Verbose:   gjson.GetBytes(body, "verbose").Bool(),
		System:    gjson.GetBytes(body, "system").String(),
		Messages:  messages,
	}, nil
}

func resolveBackend(cfg *config.FileConfig, hdr http.Header, body []byte, apiKey, backend string, reasoning bool, alias config.AliasConfig, hasAlias bool, requestModel string) (BackendPlan, *apperrors.APIError) {
	block := gjson.GetBytes(body, backend+"_config")

	endpoint := firstOf(
		hdr.Get(backendHeader(backend, "Endpoint-URL")),
		blockHeader(block, backendHeader(backend, "Endpoint-URL")),
		cfg.Endpoints[backend],
	)
	if endpoint == "" {
		return BackendPlan{}, apperrors.MissingBackend(backend)
	}

	token := firstOf(
		hdr.Get(backendHeader(backend, "API-Token")),
		blockHeader(block, backendHeader(backend, "API-Token")),
		config.KeyToken(cfg.APIKeys[apiKey], backend),
		cfg.Tokens[backend],
	)
	if token == "" {
		return BackendPlan{}, apperrors.MissingToken(backend)
	}

	aliasModel := ""
	if hasAlias {
		if reasoning {
			aliasModel = alias.DeepSeekModel
		} else {
			aliasModel = alias.TargetModel
		}
	}
	directModel := ""
	if !reasoning && !hasAlias {
		// A plain request model that names no alias goes to the answer
		// backend as-is.
		directModel = requestModel
	}
	model := firstOf(
		block.Get("body.model").String(),
		aliasModel,
		directModel,
		cfg.Models[backend],
	)
	if model == "" {
		return BackendPlan{}, apperrors.InvalidRequest("No model resolved for backend " + strings.TrimSpace(backend))
	}

	params := map[string]interface{}{}
	if hasAlias {
		for k, v := range alias.Parameters {
			params[k] = v
		}
	}
	blockBody := block.Get("body")
	if blockBody.IsObject() {
		blockBody.ForEach(func(key, value gjson.Result) bool {
			switch key.String() {
			case "model", "messages", "stream":
				// protected keys, never forwarded as params
			default:
				params[key.String()] = value.Value()
			}
			return true
		})
	}

	return BackendPlan{
		Backend:  backend,
		Endpoint: endpoint,
		Token:    token,
		Model:    model,
		Params:   params,
	}, nil
}

// blockHeader looks a header up inside a <backend>_config "headers" object,
// matching names case-insensitively like HTTP does.
func blockHeader(block gjson.Result, name string) string {
	headers := block.Get("headers")
	if !headers.IsObject() {
		return ""
	}
	var found string
	headers.ForEach(func(key, value gjson.Result) bool {
		if strings.EqualFold(key.String(), name) {
			found = value.String()
			return false
		}
		return true
	})
	return found
}

func firstOf(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
