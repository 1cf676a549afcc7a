package service

import (
	"github.com/MimeLyc/sentence-sub-translator/internal/config"
	"github.com/MimeLyc/sentence-sub-translator/internal/termmap"
	"github.com/MimeLyc/sentence-sub-translator/internal/translator"
)

// NewTranslator builds the configured engine wrapped with retries of
// transient failures.
func NewTranslator(cfg *config.Config) (translator.Translator, error) {
	if err := cfg.ValidateTranslator(); err != nil {
		return nil, WrapError(err, ErrConfig, "translator is not configured")
	}

	var engine translator.Translator
	switch cfg.Translate.Engine {
	case config.EngineLLM:
		var opts []translator.LLMOption
		if cfg.LLM.TermMapDir != "" {
			opts = append(opts, translator.WithGlossary(termmap.NewGlossary(cfg.LLM.TermMapDir)))
		}
		llm, err := translator.NewLLMTranslator(translator.LLMConfig{
			APIKey:      cfg.LLM.APIKey,
			APIURL:      cfg.LLM.APIURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.TimeoutDuration(),
		}, opts...)
		if err != nil {
			return nil, WrapError(err, ErrConfig, "failed to create LLM translator")
		}
		engine = llm
	default:
		deepl, err := translator.NewDeepLTranslator(cfg.DeepL.APIKey, translator.WithDeepLAPIURL(cfg.DeepL.APIURL))
		if err != nil {
			return nil, WrapError(err, ErrConfig, "failed to create DeepL translator")
		}
		engine = deepl
	}

	return translator.WithRetry(engine, translator.RetryConfig{
		MaxRetries: cfg.Translate.MaxRetries,
		BaseDelay:  cfg.Translate.RetryBaseDelay,
		MaxDelay:   30 * cfg.Translate.RetryBaseDelay,
	}), nil
}
