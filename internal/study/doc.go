// Package study holds the study helpers built on top of the local store:
// spaced repetition schedules, the weekly review page and the exam study
// planner.
//
// Everything here is a pure function of its inputs plus an explicit "today"
// where one is needed, so results are reproducible and easy to test. The
// generated tasks and events are ordinary store items and reach the
// workspace through the normal sync pass.
package study
