// Command ldapdig connects to a directory server, optionally binds, and
// runs one search, printing each entry to stdout. It is a thin worked
// example of the client package's public API, not a general-purpose tool.
package main

import (
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/dirsync/ldapclient"
	"github.com/dirsync/ldapclient/client"
)

func main() {
	addr := flag.String("addr", "localhost:389", "server address (host:port)")
	useTLS := flag.Bool("tls", false, "dial with implicit TLS instead of StartTLS")
	startTLS := flag.Bool("starttls", false, "negotiate StartTLS after connecting")
	insecure := flag.Bool("insecure", false, "skip TLS certificate verification")
	bindDN := flag.String("D", "", "bind DN (anonymous bind if empty)")
	password := flag.String("w", "", "bind password")
	base := flag.String("b", "", "search base DN")
	scope := flag.String("s", "sub", "search scope: base, one, or sub")
	filter := flag.String("f", "(objectClass=*)", "search filter")
	attrs := flag.String("a", "", "comma-separated attributes to return (empty means all)")
	flag.Parse()

	var tlsConfig *tls.Config
	if *insecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	var conn *client.Conn
	var err error
	if *useTLS {
		conn, err = client.DialTLS("tcp", *addr, tlsConfig)
	} else {
		conn, err = client.Dial("tcp", *addr)
	}
	if err != nil {
		log.Fatal("connect: ", err)
	}
	defer conn.Close()

	if *startTLS {
		if err := conn.StartTLS(tlsConfig); err != nil {
			log.Fatal("starttls: ", err)
		}
	}

	if *bindDN != "" || *password != "" {
		res, err := conn.Bind(&ldapclient.BindRequest{
			Version:     3,
			Name:        *bindDN,
			AuthType:    ldapclient.AuthenticationTypeSimple,
			Credentials: *password,
		})
		if err != nil {
			log.Fatal("bind: ", err)
		}
		if !res.Ok() {
			log.Fatal("bind: ", res.Error())
		}
	}

	f, err := ldapclient.ParseFilterString(*filter)
	if err != nil {
		log.Fatal("filter: ", err)
	}
	var searchScope ldapclient.SearchScope
	switch *scope {
	case "base":
		searchScope = ldapclient.SearchScopeBaseObject
	case "one":
		searchScope = ldapclient.SearchScopeSingleLevel
	case "sub":
		searchScope = ldapclient.SearchScopeWholeSubtree
	default:
		log.Fatalf("unknown scope %q", *scope)
	}
	var attributes []string
	if *attrs != "" {
		attributes = strings.Split(*attrs, ",")
	}

	handle, err := conn.Send(&ldapclient.SearchRequest{
		BaseObject: *base,
		Scope:      searchScope,
		Filter:     f,
		Attributes: attributes,
	})
	if err != nil {
		log.Fatal("search: ", err)
	}
	sh := handle.(*client.SearchHandle)

	for entry := range sh.Entries() {
		fmt.Println("dn:", entry.ObjectName)
		for _, attr := range entry.Attributes {
			for _, v := range attr.Values {
				fmt.Printf("%s: %s\n", attr.Description, v)
			}
		}
		fmt.Println()
	}
	for ref := range sh.References() {
		for _, uri := range ref {
			fmt.Println("# referral:", uri)
		}
	}
	if result := sh.Done(); !result.Ok() {
		log.Fatal("search: ", result.Error())
	}
}
