// Package contract provides the legal contract analysis tool set offered to
// the reasoning engine: clause extraction, classification and explanation,
// document reading, summarizing and searching, flagging clauses for human
// review, saving conversation notes, and the heuristic clause and strategy
// analyzers from the reasoning package.
//
// Only flag_for_review carries tool.RoleFlag, so its results are collected
// as flagged items by the agent loop.
package contract
