// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// UnknownClient identifies requests whose address cannot be determined.
const UnknownClient = "unknown"

// reservedPrefixes are rejected as forwarded client addresses in addition to
// private, loopback, link-local, multicast and unspecified ones.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("2001:db8::/32"),
}

// IsPublicIP reports whether addr is a routable, non-private address.
func IsPublicIP(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() ||
		addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() {
		return false
	}
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}

// ClientResolver derives the client identifier used as the throttling key.
type ClientResolver struct {
	trusted []netip.Prefix
}

// NewClientResolver accepts proxy addresses or CIDRs. With no proxies
// configured, forwarded headers are honoured from any peer.
func NewClientResolver(trustedProxies []string) (*ClientResolver, error) {
	c := &ClientResolver{}
	for _, p := range trustedProxies {
		if prefix, err := netip.ParsePrefix(p); err == nil {
			c.trusted = append(c.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", p)
		}
		addr = addr.Unmap()
		c.trusted = append(c.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return c, nil
}

// ClientID returns the first public address from X-Forwarded-For (left to
// right) or X-Real-IP, then the peer address, then UnknownClient.
func (c *ClientResolver) ClientID(r *http.Request) string {
	peer, peerOK := peerAddr(r.RemoteAddr)

	if c.honoursForwarded(peer, peerOK) {
		for _, candidate := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
			if ip, ok := publicCandidate(candidate); ok {
				return ip
			}
		}
		if ip, ok := publicCandidate(r.Header.Get("X-Real-IP")); ok {
			return ip
		}
	}

	if peerOK {
		return peer.String()
	}
	return UnknownClient
}

func (c *ClientResolver) honoursForwarded(peer netip.Addr, ok bool) bool {
	if len(c.trusted) == 0 {
		return true
	}
	if !ok {
		return false
	}
	for _, p := range c.trusted {
		if p.Contains(peer) {
			return true
		}
	}
	return false
}

func publicCandidate(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || !IsPublicIP(addr) {
		return "", false
	}
	return addr.Unmap().String(), true
}

func peerAddr(remoteAddr string) (netip.Addr, bool) {
	if remoteAddr == "" {
		return netip.Addr{}, false
	}
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
