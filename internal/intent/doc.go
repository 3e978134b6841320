// Package intent decides which backend provider should handle a free-text
// productivity request.
//
// A Router validates the query and its Context, asks its Classifier for a
// Decision and checks the answer against the configured closed set of
// providers. The built-in KeywordClassifier is deterministic and needs no
// network. Remote classifiers (see the openai and gemini subpackages) are
// called under a timeout with bounded retries. When they fail, the router
// either falls back to the keyword rules or returns a *ClassificationError,
// depending on Config.Fallback. It never guesses.
//
// Routing rules, in order:
//
//   - task vocabulary ("task", "todo", "reminder") goes to the task provider,
//     even when meeting words or clock times are present
//   - meeting or scheduling vocabulary, or a specific time, goes to the
//     calendar provider
//   - anything else goes to Config.DefaultProvider, or fails when none is set
//
// Usage:
//
//	router, err := intent.NewRouter(intent.DefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	c, _ := intent.NewContext("America/New_York", time.Now())
//	res, err := router.Classify(ctx, "Schedule a meeting tomorrow at 2pm", c)
//	// res.Provider == "nylas", res.IntentType == "schedule"
package intent
