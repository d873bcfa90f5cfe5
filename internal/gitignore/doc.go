// Package gitignore implements the .gitignore pattern syntax
// (https://git-scm.com/docs/gitignore) for deciding which files the
// scanner and watcher leave out of the index: the project's own
// .gitignore, the configured .codeindexignore, and the hardcoded
// .codeindex/ store directory.
//
// Features:
//   - Basic pattern matching (*.log, temp/)
//   - Wildcard patterns (*, ?, **)
//   - Rooted patterns (/build)
//   - Negation patterns (!important.log)
//   - Directory-only patterns (build/)
//   - Nested gitignore file support
//   - Thread-safe matching
//
// Usage:
//
//	m := gitignore.New()
//	m.AddPattern("*.log")
//	m.AddPattern("!important.log")
//	m.AddPattern("/build/")
//
//	if m.Match("error.log", false) {
//	    // file is excluded from the build
//	}
//
// For nested ignore files:
//
//	m.AddFromFile("/path/to/project/.gitignore", "")
//	m.AddFromFile("/path/to/project/src/.gitignore", "src")
package gitignore
