// Package normalize reshapes upstream candidate payloads into the form the
// front-end renders. Field values pass through as raw JSON, so numeric ids
// stay numeric and unknown fields survive untouched.
package normalize

import (
	"bytes"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"alfredoptarigan/cv-search/internal/models"
)

var listKeys = []string{"candidates", "eligible", "results", "data"}

// Detail normalizes a single-candidate payload fetched for id.
func Detail(raw []byte, base, id string) []byte {
	doc := parse(raw)
	if !doc.IsObject() {
		return placeholder(base, id)
	}

	pdfRaw, pdfID := strconv.Quote(id), id
	if v, ok := firstTruthy(doc, "pdfId", "pdf_id"); ok {
		pdfRaw, pdfID = v.Raw, v.String()
	}

	out := pretty.Ugly([]byte(doc.Raw))
	out = setRaw(out, "pdfId", pdfRaw)
	out = setString(out, "pdfUrl", models.PdfURL(base, pdfID))
	return out
}

// Search normalizes a list payload. The list is taken from the first of
// candidates, eligible, results, data that is present and not null.
func Search(raw []byte, base string) []byte {
	doc := parse(raw)

	var list gjson.Result
	if doc.IsObject() {
		for _, key := range listKeys {
			if v := doc.Get(key); present(v) {
				list = v
				break
			}
		}
	}

	var items []gjson.Result
	if list.IsArray() {
		items = list.Array()
	}

	var buf bytes.Buffer
	buf.WriteString(`{"candidates":[`)
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(searchItem(item, base))
	}
	buf.WriteString(`],"total":`)

	if total := doc.Get("total"); doc.IsObject() && present(total) {
		buf.Write(pretty.Ugly([]byte(total.Raw)))
	} else {
		buf.WriteString(strconv.Itoa(len(items)))
	}

	if next := doc.Get("nextOffset"); doc.IsObject() && present(next) {
		buf.WriteString(`,"nextOffset":`)
		buf.Write(pretty.Ugly([]byte(next.Raw)))
	}
	buf.WriteByte('}')

	return buf.Bytes()
}

// UpstreamMessage returns the first truthy of message and error in an
// upstream error body, or "" when there is none.
func UpstreamMessage(raw []byte) string {
	doc := parse(raw)
	if !doc.IsObject() {
		return ""
	}
	v, ok := firstTruthy(doc, "message", "error")
	if !ok {
		return ""
	}
	if v.Type == gjson.String {
		return v.Str
	}
	return v.Raw
}

func searchItem(item gjson.Result, base string) []byte {
	if !item.IsObject() {
		return []byte("{}")
	}

	out := pretty.Ugly([]byte(item.Raw))
	v, ok := firstTruthy(item, "pdfId", "pdf_id")
	if !ok {
		out = del(out, "pdfId")
		return del(out, "pdfUrl")
	}

	out = setRaw(out, "pdfId", v.Raw)
	return setString(out, "pdfUrl", models.PdfURL(base, v.String()))
}

func placeholder(base, id string) []byte {
	out := []byte(`{}`)
	out = setString(out, "id", id)
	out = setRaw(out, "score", "0")
	return setString(out, "pdfUrl", models.PdfURL(base, id))
}

// parse treats malformed input as an empty object.
func parse(raw []byte) gjson.Result {
	if !gjson.ValidBytes(raw) {
		return gjson.Parse("{}")
	}
	return gjson.ParseBytes(raw)
}

func present(v gjson.Result) bool {
	return v.Exists() && v.Type != gjson.Null
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	default:
		return v.Exists()
	}
}

func firstTruthy(doc gjson.Result, keys ...string) (gjson.Result, bool) {
	for _, key := range keys {
		if v := doc.Get(key); truthy(v) {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// The sjson helpers only fail on invalid paths, and every path used here is
// a plain key.
func setRaw(doc []byte, key, raw string) []byte {
	out, err := sjson.SetRawBytes(doc, key, []byte(raw))
	if err != nil {
		return doc
	}
	return out
}

func setString(doc []byte, key, value string) []byte {
	out, err := sjson.SetBytes(doc, key, value)
	if err != nil {
		return doc
	}
	return out
}

func del(doc []byte, key string) []byte {
	out, err := sjson.DeleteBytes(doc, key)
	if err != nil {
		return doc
	}
	return out
}
