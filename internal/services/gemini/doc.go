// Package gemini implements the provider gateway on top of the Google Gen AI
// SDK (Gemini Developer API).
//
// Generate issues exactly one GenerateContent call. ListCapableModels pages
// through the model catalogue and keeps models that support generateContent,
// reporting names without the "models/" prefix. SDK errors are mapped onto
// the gateway failure kinds; rate limits carry the RetryInfo delay when the
// API reports one.
package gemini
