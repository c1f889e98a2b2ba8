// Package core defines the conversation primitives shared by every layer of
// the coach: role-tagged content with polymorphic parts, immutable transcript
// events, the per-thread session container with its storage contract, thread
// id derivation and the context handed to tool invocations.
package core
