package geolib

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

type AddressKind uint8

const (
	AddressKindIPv4 AddressKind = iota + 1
	AddressKindIPv6
)

func (a AddressKind) String() string {
	switch a {
	case AddressKindIPv4:
		return "IPv4"
	case AddressKindIPv6:
		return "IPv6"
	}

	return ""
}

// Address is a validated IP address. The only way to get a non-empty
// Address is Normalizer (or ParseAddress for IP literals), so if you
// have one, it is valid.
//
// Canonical form of the address is used as a key everywhere: two
// addresses are equal if their String() values are equal.
type Address struct {
	raw  string
	host string
	ip   netip.Addr
}

// Raw returns a string this address was built from.
func (a Address) Raw() string {
	return a.raw
}

// Host returns a hostname which was resolved to this address. It is
// empty if address was given as IP literal.
func (a Address) Host() string {
	return a.host
}

func (a Address) Kind() AddressKind {
	switch {
	case !a.ip.IsValid():
		return 0
	case a.ip.Is4():
		return AddressKindIPv4
	}

	return AddressKindIPv6
}

// String returns a canonical form of the address.
func (a Address) String() string {
	if !a.ip.IsValid() {
		return ""
	}

	return a.ip.String()
}

func (a Address) IP() net.IP {
	return net.IP(a.ip.AsSlice())
}

func (a Address) IsZero() bool {
	return !a.ip.IsValid()
}

// Equal compares addresses by their canonical forms.
func (a Address) Equal(other Address) bool {
	return a.ip == other.ip
}

// ParseAddress builds an address from IP literal only, without any DNS
// resolution. Stores use it to restore addresses from their keys.
func ParseAddress(raw string) (Address, error) {
	addr, ok := parseIPLiteral(raw)
	if !ok {
		return Address{}, &InvalidInputError{
			Input:  raw,
			Reason: "not an IP address",
		}
	}

	return Address{
		raw: raw,
		ip:  addr,
	}, nil
}

// RestoreAddress is used by stores to rebuild an address from persisted
// columns. canonical has to be an IP literal, raw and host are taken as
// is.
func RestoreAddress(canonical, raw, host string) (Address, error) {
	addr, err := ParseAddress(canonical)
	if err != nil {
		return addr, err
	}

	if raw != "" {
		addr.raw = raw
	}

	addr.host = host

	return addr, nil
}

// Normalizer converts raw user input into Address.
type Normalizer struct {
	resolver HostResolver
}

// Normalize accepts IP literal or URL (or bare hostname). IP literals
// are canonicalized, URLs are resolved to the first IP address returned
// by resolver.
func (n *Normalizer) Normalize(ctx context.Context, raw string) (Address, error) {
	trimmed := strings.TrimSpace(raw)

	if trimmed == "" {
		return Address{}, &InvalidInputError{
			Input:  raw,
			Reason: "empty value",
		}
	}

	if addr, ok := parseIPLiteral(trimmed); ok {
		return Address{
			raw: trimmed,
			ip:  addr,
		}, nil
	}

	host, err := extractHost(trimmed)
	if err != nil {
		return Address{}, &InvalidInputError{
			Input:  raw,
			Reason: "cannot extract host",
			Err:    err,
		}
	}

	if addr, ok := parseIPLiteral(host); ok {
		return Address{
			raw: trimmed,
			ip:  addr,
		}, nil
	}

	host = strings.ToLower(strings.TrimSuffix(host, "."))

	if _, ok := dns.IsDomainName(host); !ok || dns.CountLabel(host) < 2 {
		return Address{}, &InvalidInputError{
			Input:  raw,
			Reason: "invalid domain name " + host,
		}
	}

	// top level domain cannot be numeric, this is a malformed IP
	labels := dns.SplitDomainName(host)
	if strings.Trim(labels[len(labels)-1], "0123456789") == "" {
		return Address{}, &InvalidInputError{
			Input:  raw,
			Reason: "invalid IP address " + host,
		}
	}

	addrs, err := n.resolver.LookupHost(ctx, host)
	if err != nil {
		return Address{}, &InvalidInputError{
			Input:  raw,
			Reason: "cannot resolve " + host,
			Err:    err,
		}
	}

	for _, v := range addrs {
		if v.IsValid() {
			return Address{
				raw:  trimmed,
				host: host,
				ip:   v.Unmap().WithZone(""),
			}, nil
		}
	}

	return Address{}, &InvalidInputError{
		Input:  raw,
		Reason: "no addresses for " + host,
	}
}

func extractHost(raw string) (string, error) {
	toParse := raw

	if !strings.Contains(raw, "://") {
		toParse = "//" + raw
	}

	parsed, err := url.Parse(toParse)
	if err != nil {
		return "", fmt.Errorf("cannot parse url: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return "", errors.New("host is empty")
	}

	if strings.HasPrefix(parsed.Host, "[") {
		if _, ok := parseBracketedIPv6("[" + host + "]"); !ok {
			return "", fmt.Errorf("%s is not an IPv6 address", host)
		}
	} else if strings.ContainsAny(host, "[]:") {
		return "", fmt.Errorf("incorrect host %s", host)
	}

	return host, nil
}

// only IPv6 can be bracketed and brackets have to be balanced
func parseIPLiteral(raw string) (netip.Addr, bool) {
	if strings.HasPrefix(raw, "[") || strings.HasSuffix(raw, "]") {
		return parseBracketedIPv6(raw)
	}

	if addr, err := netip.ParseAddr(raw); err == nil {
		return addr.Unmap().WithZone(""), true
	}

	return parseIPv4WithLeadingZeroes(raw)
}

func parseBracketedIPv6(raw string) (netip.Addr, bool) {
	if len(raw) < 2 || raw[0] != '[' || raw[len(raw)-1] != ']' {
		return netip.Addr{}, false
	}

	addr, err := netip.ParseAddr(raw[1 : len(raw)-1])
	if err != nil || !addr.Is6() {
		return netip.Addr{}, false
	}

	return addr.Unmap().WithZone(""), true
}

// netip refuses octets like 008 because some parsers treat them as
// octal ones. We want them as decimals.
func parseIPv4WithLeadingZeroes(raw string) (netip.Addr, bool) {
	chunks := strings.Split(raw, ".")
	if len(chunks) != 4 {
		return netip.Addr{}, false
	}

	octets := [4]byte{}

	for i, v := range chunks {
		if v == "" || len(v) > 3 || strings.TrimLeft(v, "0123456789") != "" {
			return netip.Addr{}, false
		}

		num, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return netip.Addr{}, false
		}

		octets[i] = byte(num)
	}

	return netip.AddrFrom4(octets), true
}

func NewNormalizer(resolver HostResolver) *Normalizer {
	if resolver == nil {
		resolver = NewSystemResolver()
	}

	return &Normalizer{
		resolver: resolver,
	}
}
