// Package pipeline provides a framework for executing scrape steps in sequence.
//
// The pipeline pattern is used to process a law source through multiple
// stages: index discovery, article fetching, parsing, and storage. Each stage
// is implemented as a Step that receives the current scrape report and can
// modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running scrapes
//
// The pipeline supports both single-source scrapes and batch processing of
// multiple law sources with concurrency control using errgroup.
package pipeline
