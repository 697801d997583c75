package main

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte("\xef\xbb\xbf")

var xmlEncodingRe = regexp.MustCompile(`^(\s*<\?xml[^>]*?encoding\s*=\s*["'])([^"']*)(["'])`)

// getRSS returns the feed at feedURL as a slice of items, in the order the feed lists them
func getRSS(client *http.Client, feedURL string) ([]item, error) {
	resp, err := client.Get(feedURL)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", feedURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching %s: unexpected status %s", feedURL, resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", feedURL)
	}

	doc, err := toUTF8(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", feedURL)
	}

	f, err := gofeed.NewParser().ParseString(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", feedURL)
	}

	items := make([]item, 0, len(f.Items))
	for _, it := range f.Items {
		i := item{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
		}
		if i.Description == "" {
			i.Description = it.Content
		}

		switch {
		case it.PublishedParsed != nil:
			i.Published = *it.PublishedParsed
		case it.UpdatedParsed != nil:
			i.Published = *it.UpdatedParsed
		default:
			return nil, errors.Errorf("parsing %s: item %q has no date", feedURL, it.Title)
		}

		items = append(items, i)
	}

	return items, nil
}

// toUTF8 transcodes raw from its declared charset to UTF-8, and rewrites the
// XML prolog so the parser doesn't try to decode it again
func toUTF8(raw []byte, contentType string) (string, error) {
	label := declaredCharset(raw, contentType)

	// Latin-1 when neither the server nor the document declare a charset
	var enc encoding.Encoding = charmap.ISO8859_1
	if label != "" {
		var err error
		enc, err = htmlindex.Get(label)
		if err != nil {
			return "", errors.Wrapf(err, "unknown charset %q", label)
		}
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", errors.Wrapf(err, "transcoding from %s", label)
	}

	doc := strings.TrimPrefix(string(out), "\ufeff")
	return xmlEncodingRe.ReplaceAllString(doc, "${1}UTF-8${3}"), nil
}

// declaredCharset looks at the Content-Type header first, then the XML prolog.
// An empty result means the default applies.
func declaredCharset(raw []byte, contentType string) string {
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil && params["charset"] != "" {
			return strings.ToLower(params["charset"])
		}
	}

	// A byte order mark is a declaration of its own
	if bytes.HasPrefix(raw, utf8BOM) {
		return "utf-8"
	}

	if m := xmlEncodingRe.FindSubmatch(raw); m != nil && len(m[2]) > 0 {
		return strings.ToLower(string(m[2]))
	}

	return ""
}
