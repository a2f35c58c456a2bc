// Package orchestrator runs the form-filling pipeline of one session. Each
// mutation recomputes the repeating groups, settles calculation rules,
// recomputes hidden components and revalidates, in that order, against a
// private copy of the state that is committed only when every stage ran.
package orchestrator
