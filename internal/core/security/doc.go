// Package security classifies command lines by risk.
//
// The classifier sits between the response parser and the execution
// coordinator. Rules are evaluated in a fixed order and the first match
// decides the level:
//
//   - empty input
//   - JSON plans
//   - syntax errors (unbalanced quotes)
//   - dangerous commands (recursive delete, format, power control, ...)
//   - semi-dangerous patterns (wildcard delete, world-writable chmod, ...)
//   - the allow list, in safe mode
//   - shell constructs (pipes, redirects, lists)
//
// The restricted and read-only path lists are applied afterwards and can
// only raise a level.
package security
