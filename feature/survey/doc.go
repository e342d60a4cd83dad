// Package survey is the authoring side of the engine and its public surface.
//
// Surveys and their ordered questions live in the surveymaker_survey and
// surveymaker_question tables. Each survey is a definition: its questions
// become the columns of a synthesized response schema, stored in a table of
// its own (responses_response<slug>).
//
// # Components
//
//   - Repository: reads definitions from the authoring tables and writes them back.
//   - Service: the engine facade. It resolves response schemas through the
//     shared-fingerprint cache, reconciles their tables and registers the
//     startup build behind a dependency gate.
//   - Importer: loads YAML definition documents from the storage bucket.
//   - Handler: the /schemas HTTP routes, including response submission.
//
// # HTTP Endpoints
//
//   - GET  /schemas                    : Lists all response schemas.
//   - GET  /schemas/:slug              : Returns one schema (supports ?regenerate=true).
//   - POST /schemas/:slug/sync         : Regenerates, reconciles and publishes a schema (supports ?dry_run=true).
//   - GET  /schemas/:slug/responses    : Lists stored responses (supports ?limit= and ?offset=).
//   - POST /schemas/:slug/responses    : Validates and stores a response.
package survey
