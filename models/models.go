// Package models holds the persisted entities of the interview coach.
//
// Schema overview:
//  1. users - identities behind the auth cookie or bearer token
//  2. personas - interviewer characters, seeded at startup
//  3. interviews - scheduled engagements (scheduled -> in-progress -> completed)
//  4. interview_sessions - one conversational run; messages and metrics are
//     embedded JSON documents on the row, not separate tables
//  5. interview_reports - the final scored report, at most one per interview
package models
