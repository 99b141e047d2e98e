/*
Package config loads application settings.

Config is a typed view over map[string]any: accessors return a default when
a key is missing or has the wrong type, so values decoded from YAML, JSON
or the environment can be read without assertions.

	cfg, err := config.FromFile("graphchat.yaml")
	timeout := cfg.Duration("request_timeout", time.Minute)

Load resolves Settings by layering defaults, a YAML settings file, a .env
file and the process environment:

	settings, err := config.Load()
	if err != nil {
	    return err
	}
	model, err := llm.InitChatModel(settings.Model)

Recognised keys and their environment variables:

	model               LLM_MODEL
	search_max_results  GRAPHCHAT_SEARCH_MAX_RESULTS
	checkpoint_db       GRAPHCHAT_CHECKPOINT_DB
	log_level           GRAPHCHAT_LOG_LEVEL
	log_file            GRAPHCHAT_LOG_FILE
	max_iterations      GRAPHCHAT_MAX_ITERATIONS
	request_timeout     GRAPHCHAT_REQUEST_TIMEOUT
	metrics             GRAPHCHAT_METRICS
	tracing             GRAPHCHAT_TRACING
*/
package config
