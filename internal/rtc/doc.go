// Package rtc drives one peer-to-peer connection from manual descriptor
// exchange to an open data channel.
//
// # Overview
//
// A Session plays one of two roles. The initiator creates the data channel and
// an offer; the responder accepts that offer and produces an answer. The
// descriptors are complete (ICE gathering has finished) so they can be carried
// by hand, with no signaling server:
//
//	initiator                          responder
//	StartAsInitiator ─ offer ───────▶  AcceptOffer
//	AcceptAnswer     ◀─────── answer ─ (LocalDescriptor event)
//	        Connected, then ChannelOpen on both sides
//
// # Events
//
// Every callback coming from the network layer is queued and delivered by a
// single goroutine per session, in order, to the one handler registered for
// it. Handlers must not block for long; heavy work belongs elsewhere.
//
// # Links
//
// The network side is abstracted as Link and Channel. PionFactory builds them
// on pion/webrtc; rtctest provides an in-memory network for tests.
package rtc
