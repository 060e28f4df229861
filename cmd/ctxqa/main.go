// Ctxqa answers natural-language questions using only a supplied context
// passage, via an OpenAI-compatible chat model.
//
// Usage:
//
//	# One-shot question answering
//	ctxqa ask "What is the capital of France?" --context "Paris is the capital of France."
//
//	# Context from a file
//	ctxqa ask "Who wrote it?" --context-file notes.txt
//
//	# HTTP API with Prometheus metrics
//	ctxqa serve --listen :8080
//
// Credentials come from the environment (OPENAI_API_KEY, or
// AZURE_OPENAI_API_KEY plus AZURE_OPENAI_ENDPOINT for the gateway
// variant); a .env file in the working directory is loaded when present.
//
// Exit codes: 0 success, 2 invalid input or configuration, 3 rate
// limited, 4 upstream unavailable after retries, 1 any other failure.
package main

import "os"

func main() {
	os.Exit(Execute())
}
