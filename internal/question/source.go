// Package question sources trivia questions from the Open Trivia Database.
// A session token is kept server-side so consecutive requests do not
// repeat questions; the token survives restarts in Redis.
package question

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-trivia-bot/internal/model"
)

const (
	// DefaultBaseURL is the public Open Trivia DB endpoint.
	DefaultBaseURL = "https://opentdb.com"

	requestTimeout = 10 * time.Second
)

// Open Trivia DB response codes.
const (
	codeSuccess      = 0
	codeNoResults    = 1
	codeTokenExpired = 3
	codeTokenEmpty   = 4
)

var (
	// ErrNoQuestion means the API answered but had no matching question.
	ErrNoQuestion = errors.New("no question available for the given filters")
)

// TokenStore persists the Open Trivia DB session token.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Source fetches questions over HTTP. It implements the engine's
// QuestionSource contract.
type Source struct {
	baseURL string
	client  *http.Client
	tokens  TokenStore
	rng     *rand.Rand
}

// Option configures a Source.
type Option func(*Source)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(s *Source) { s.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

// WithRand overrides the randomness source used for filter picking and
// answer shuffling, for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Source) { s.rng = r }
}

// NewSource creates a Source. A nil token store disables session tokens.
func NewSource(tokens TokenStore, opts ...Option) *Source {
	s := &Source{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
		tokens:  tokens,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type apiResponse struct {
	ResponseCode int         `json:"response_code"`
	Results      []apiResult `json:"results"`
}

type apiResult struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type tokenResponse struct {
	ResponseCode int    `json:"response_code"`
	Token        string `json:"token"`
}

// GetQuestion fetches one question matching the filters. The API accepts
// a single category, difficulty and type per request, so one of each is
// picked at random from the enabled sets. An empty set means "any".
// A (nil, nil) return means no question could be found.
func (s *Source) GetQuestion(ctx context.Context, categories []int, difficulties, types []string) (*model.Question, error) {
	token, err := s.token(ctx)
	if err != nil {
		// Sessions are best effort; questions may repeat without one.
		log.Debug().Err(err).Msg("Proceeding without opentdb session token")
		token = ""
	}

	resp, err := s.fetch(ctx, categories, difficulties, types, token)
	if err != nil {
		return nil, err
	}

	if resp.ResponseCode == codeTokenExpired || resp.ResponseCode == codeTokenEmpty {
		if s.tokens != nil {
			if err := s.tokens.ClearToken(ctx); err != nil {
				log.Debug().Err(err).Msg("Failed to clear opentdb session token")
			}
		}
		token, err = s.requestToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("refresh session token: %w", err)
		}
		resp, err = s.fetch(ctx, categories, difficulties, types, token)
		if err != nil {
			return nil, err
		}
	}

	if resp.ResponseCode != codeSuccess || len(resp.Results) == 0 {
		if resp.ResponseCode == codeNoResults {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: response code %d", ErrNoQuestion, resp.ResponseCode)
	}

	return s.buildQuestion(&resp.Results[0])
}

// fetch performs one api.php request.
func (s *Source) fetch(ctx context.Context, categories []int, difficulties, types []string, token string) (*apiResponse, error) {
	q := url.Values{}
	q.Set("amount", "1")
	q.Set("encode", "base64")
	if len(categories) > 0 {
		q.Set("category", fmt.Sprintf("%d", categories[s.rng.Intn(len(categories))]))
	}
	if len(difficulties) > 0 {
		q.Set("difficulty", difficulties[s.rng.Intn(len(difficulties))])
	}
	if len(types) > 0 {
		q.Set("type", types[s.rng.Intn(len(types))])
	}
	if token != "" {
		q.Set("token", token)
	}

	var resp apiResponse
	if err := s.getJSON(ctx, "/api.php?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// token returns the stored session token, requesting a new one if absent.
func (s *Source) token(ctx context.Context) (string, error) {
	if s.tokens == nil {
		return "", nil
	}
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}
	return s.requestToken(ctx)
}

// requestToken asks the API for a fresh session token and stores it.
func (s *Source) requestToken(ctx context.Context) (string, error) {
	var resp tokenResponse
	if err := s.getJSON(ctx, "/api_token.php?command=request", &resp); err != nil {
		return "", err
	}
	if resp.ResponseCode != codeSuccess || resp.Token == "" {
		return "", fmt.Errorf("token request failed with response code %d", resp.ResponseCode)
	}
	if s.tokens != nil {
		if err := s.tokens.SetToken(ctx, resp.Token); err != nil {
			log.Debug().Err(err).Msg("Failed to store opentdb session token")
		}
	}
	return resp.Token, nil
}

func (s *Source) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request opentdb: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("opentdb returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode opentdb response: %w", err)
	}
	return nil
}

// buildQuestion decodes a base64-encoded result and shuffles the answer
// options. Boolean questions keep the fixed True/False order.
func (s *Source) buildQuestion(r *apiResult) (*model.Question, error) {
	category, err := decodeField(r.Category)
	if err != nil {
		return nil, err
	}
	difficulty, err := decodeField(r.Difficulty)
	if err != nil {
		return nil, err
	}
	qType, err := decodeField(r.Type)
	if err != nil {
		return nil, err
	}
	text, err := decodeField(r.Question)
	if err != nil {
		return nil, err
	}
	correct, err := decodeField(r.CorrectAnswer)
	if err != nil {
		return nil, err
	}

	var answers []string
	if qType == "boolean" {
		answers = []string{"True", "False"}
	} else {
		answers = make([]string, 0, len(r.IncorrectAnswers)+1)
		answers = append(answers, correct)
		for _, enc := range r.IncorrectAnswers {
			a, err := decodeField(enc)
			if err != nil {
				return nil, err
			}
			answers = append(answers, a)
		}
		s.rng.Shuffle(len(answers), func(i, j int) {
			answers[i], answers[j] = answers[j], answers[i]
		})
	}

	correctIndex := 0
	for i, a := range answers {
		if a == correct {
			correctIndex = i + 1
			break
		}
	}
	if correctIndex == 0 {
		return nil, fmt.Errorf("correct answer %q missing from options", correct)
	}

	return &model.Question{
		Category:     category,
		Difficulty:   difficulty,
		Type:         qType,
		Text:         text,
		Answers:      answers,
		CorrectIndex: correctIndex,
	}, nil
}

func decodeField(enc string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("decode base64 field: %w", err)
	}
	return string(b), nil
}
