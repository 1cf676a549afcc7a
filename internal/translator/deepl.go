package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MimeLyc/sentence-sub-translator/pkg/log"
)

const DefaultDeepLAPIURL = "https://api-free.deepl.com/v2/translate"

// deeplQuotaExceeded is DeepL's non-standard "quota exceeded" status.
const deeplQuotaExceeded = 456

// DeepLTranslator translates text with the DeepL REST API.
type DeepLTranslator struct {
	apiKey string
	apiURL string
	http   *resty.Client
}

type DeepLOption func(*DeepLTranslator)

func WithDeepLAPIURL(apiURL string) DeepLOption {
	return func(d *DeepLTranslator) {
		if apiURL != "" {
			d.apiURL = apiURL
		}
	}
}

func WithHTTPClient(client *http.Client) DeepLOption {
	return func(d *DeepLTranslator) {
		if client != nil {
			d.http = resty.NewWithClient(client)
		}
	}
}

func NewDeepLTranslator(apiKey string, opts ...DeepLOption) (*DeepLTranslator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("DeepL API key not configured")
	}
	d := &DeepLTranslator{
		apiKey: apiKey,
		apiURL: DefaultDeepLAPIURL,
		http:   resty.New().SetTimeout(time.Minute),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *DeepLTranslator) Translate(ctx context.Context, text string, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	resp, err := d.http.R().SetContext(ctx).
		SetHeader("Authorization", "DeepL-Auth-Key "+d.apiKey).
		SetFormData(map[string]string{
			"text":        text,
			"target_lang": DeepLLangCode(targetLang),
		}).
		Post(d.apiURL)
	if err != nil {
		return "", classifyTransportError(ctx, "DeepL", err)
	}

	if resp.StatusCode() != http.StatusOK {
		log.Debug("DeepL responded %d: %s", resp.StatusCode(), resp.String())
		return "", classifyStatus("DeepL", resp.StatusCode(), resp.String())
	}

	var deeplResp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(resp.Body(), &deeplResp); err != nil {
		return "", fmt.Errorf("parse DeepL response: %v: %w", err, ErrPermanent)
	}
	if len(deeplResp.Translations) == 0 {
		return "", fmt.Errorf("DeepL returned no translations: %w", ErrPermanent)
	}
	return deeplResp.Translations[0].Text, nil
}

// DeepLLangCode upper-cases a target code and normalizes "_" to "-"
// ("zh_hant" -> "ZH-HANT"). Subtags are kept as given; DeepL validates them.
func DeepLLangCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
}

// classifyStatus maps an HTTP status code to the failure classes.
func classifyStatus(provider string, status int, body string) error {
	msg := fmt.Sprintf("%s API error (status %d): %s", provider, status, strings.TrimSpace(body))
	switch {
	case status == deeplQuotaExceeded, status == http.StatusPaymentRequired:
		return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= 500:
		return fmt.Errorf("%s: %w", msg, ErrTransient)
	default:
		return fmt.Errorf("%s: %w", msg, ErrPermanent)
	}
}

// classifyTransportError maps request failures. A cancelled or expired caller
// context is permanent; network trouble is transient.
func classifyTransportError(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s request aborted: %w: %w", provider, ctx.Err(), ErrPermanent)
	}
	return fmt.Errorf("%s request: %v: %w", provider, err, ErrTransient)
}
