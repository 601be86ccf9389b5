// Package pipeline runs an ordered list of named steps one after another.
//
// A step either produces a value from nothing (Source) or consumes the output
// of one earlier step (Stage). Steps run strictly in list order; the first
// failure marks the step FAILED and every step after it SKIPPED.
package pipeline
