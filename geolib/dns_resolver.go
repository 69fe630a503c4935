package geolib

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

const DefaultDNSTimeout = 5 * time.Second

type systemResolver struct {
	resolver *net.Resolver
}

func (s systemResolver) LookupHost(ctx context.Context, host string) ([]netip.Addr, error) {
	addrs, err := s.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %s: %w", host, err)
	}

	return addrs, nil
}

// NewSystemResolver returns a resolver which uses OS configuration.
func NewSystemResolver() HostResolver {
	return systemResolver{
		resolver: net.DefaultResolver,
	}
}

type dnsResolver struct {
	client *dns.Client
	server string
}

func (d dnsResolver) LookupHost(ctx context.Context, host string) ([]netip.Addr, error) {
	fqdn := dns.Fqdn(host)
	rv := []netip.Addr{}

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		addrs, err := d.query(ctx, fqdn, qtype)
		if err != nil {
			return nil, err
		}

		rv = append(rv, addrs...)

		// A records are enough, no need to ask for AAAA
		if len(rv) > 0 {
			break
		}
	}

	if len(rv) == 0 {
		return nil, fmt.Errorf("no A or AAAA records for %s", host)
	}

	return rv, nil
}

func (d dnsResolver) query(ctx context.Context, fqdn string, qtype uint16) ([]netip.Addr, error) {
	msg := &dns.Msg{}

	msg.SetQuestion(fqdn, qtype)
	msg.RecursionDesired = true

	resp, _, err := d.client.ExchangeContext(ctx, msg, d.server)
	if err != nil {
		return nil, fmt.Errorf("cannot query %s: %w", d.server, err)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, fmt.Errorf("domain %s does not exist", fqdn)
	default:
		return nil, fmt.Errorf("unexpected rcode %s", dns.RcodeToString[resp.Rcode])
	}

	rv := make([]netip.Addr, 0, len(resp.Answer))

	for _, rr := range resp.Answer {
		var ip net.IP

		switch record := rr.(type) {
		case *dns.A:
			ip = record.A
		case *dns.AAAA:
			ip = record.AAAA
		default:
			continue
		}

		if addr, ok := netip.AddrFromSlice(ip); ok {
			rv = append(rv, addr.Unmap())
		}
	}

	return rv, nil
}

// NewDNSResolver returns a resolver which sends queries to a given DNS
// server directly (host:port, port 53 is used if omitted), bypassing OS
// configuration.
func NewDNSResolver(server string, timeout time.Duration) HostResolver {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	if timeout <= 0 {
		timeout = DefaultDNSTimeout
	}

	return dnsResolver{
		client: &dns.Client{
			Net:     "udp",
			Timeout: timeout,
		},
		server: server,
	}
}
