// Package config loads the environment configuration of a settings host.
//
// Values come from LANGOPTS_* variables, optionally seeded from .env files:
//
//	LANGOPTS_LOG_LEVEL=debug
//	LANGOPTS_LOG_FORMAT=json
//	LANGOPTS_EVALUATOR=cel
//	LANGOPTS_ACTIVITY_ENABLED=true
//	LANGOPTS_ACTIVITY_VERBS=options.rejected,options.reset
//	LANGOPTS_FLAGS=language_from_content
//	LANGOPTS_LANGUAGES_FILE=languages.yaml
//
// Config then builds the logger, evaluator and activity settings used to
// configure an options collection.
package config
