// Package descriptor writes the build descriptor read by the Unreal module
// rules.
//
// The descriptor lists everything the plugin must link:
//
//	<root>
//	  <PublicFrameworks><Item>UIKit</Item></PublicFrameworks>
//	  <PublicWeakFrameworks><Item>AdSupport</Item></PublicWeakFrameworks>
//	  <PublicSystemLibraries><Item>sqlite3</Item></PublicSystemLibraries>
//	  <PublicAdditionalLibraries><Item>Foo/Foo.xcframework/ios-arm64/libFoo.a</Item></PublicAdditionalLibraries>
//	  <PublicAdditionalFrameworks>
//	    <Item>
//	      <Name>Bar</Name>
//	      <PathComponents><Item>Bar</Item><Item>Bar.xcframework</Item></PathComponents>
//	      <Resources>Bar/BarResources.bundle</Resources>
//	    </Item>
//	  </PublicAdditionalFrameworks>
//	</root>
//
// Paths are relative to the install root. Every list is sorted so the file
// only changes when the resolved set changes.
package descriptor

import (
	"cmp"
	"encoding/json"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/podkit/pkg/deps"
	"github.com/matzehuels/podkit/pkg/errors"
	"github.com/matzehuels/podkit/pkg/rules"
)

// Format selects the descriptor encoding.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatXML, FormatJSON:
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown descriptor format %q (want xml or json)", s)
}

// FileName returns the descriptor file name for the format.
func (f Format) FileName() string {
	return "config." + string(f)
}

// Descriptor is the serialized view of a resolution run.
type Descriptor struct {
	Frameworks      []string
	WeakFrameworks  []string
	SystemLibraries []string
	Libraries       []rules.Rule // Static library slices
	BuildRules      []rules.Rule // Frameworks and xcframeworks
}

// FromState builds a Descriptor with sorted lists.
func FromState(st *deps.State) *Descriptor {
	d := &Descriptor{
		Frameworks:      st.SortedFrameworks(),
		WeakFrameworks:  st.SortedWeakFrameworks(),
		SystemLibraries: st.SortedLibraries(),
	}
	for _, r := range st.Rules {
		if r.Kind == rules.KindLibrary {
			d.Libraries = append(d.Libraries, r)
		} else {
			d.BuildRules = append(d.BuildRules, r)
		}
	}
	byName := func(a, b rules.Rule) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.PathString(), b.PathString()))
	}
	slices.SortFunc(d.Libraries, byName)
	slices.SortFunc(d.BuildRules, byName)
	return d
}

// Encode writes the descriptor to w in the given format.
func (d *Descriptor) Encode(w io.Writer, format Format) error {
	doc := d.document()
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatXML:
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
		enc := xml.NewEncoder(w)
		enc.Indent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown descriptor format %q", format)
	}
}

// Write encodes the descriptor into root/config.<format> and returns the
// file path. Failures are DESCRIPTOR_WRITE errors.
func (d *Descriptor) Write(root string, format Format) (string, error) {
	path := filepath.Join(root, format.FileName())
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeDescriptorWrite, err, "create %s", root)
	}

	tmp, err := os.CreateTemp(root, ".config-*")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDescriptorWrite, err, "write %s", path)
	}
	defer os.Remove(tmp.Name())

	if err := d.Encode(tmp, format); err != nil {
		tmp.Close()
		return "", errors.Wrap(errors.ErrCodeDescriptorWrite, err, "encode %s", path)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeDescriptorWrite, err, "write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", errors.Wrap(errors.ErrCodeDescriptorWrite, err, "write %s", path)
	}
	return path, nil
}

type document struct {
	XMLName         xml.Name      `xml:"root" json:"-"`
	Frameworks      itemList      `xml:"PublicFrameworks" json:"PublicFrameworks"`
	WeakFrameworks  itemList      `xml:"PublicWeakFrameworks" json:"PublicWeakFrameworks"`
	SystemLibraries itemList      `xml:"PublicSystemLibraries" json:"PublicSystemLibraries"`
	Libraries       itemList      `xml:"PublicAdditionalLibraries" json:"PublicAdditionalLibraries"`
	BuildRules      frameworkList `xml:"PublicAdditionalFrameworks" json:"PublicAdditionalFrameworks"`
}

// itemList encodes as <Item> children in XML and as a plain array in JSON.
// The wrapping element is written even when the list is empty.
type itemList struct {
	Items []string `xml:"Item"`
}

func (l itemList) MarshalJSON() ([]byte, error) {
	if l.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.Items)
}

type frameworkList struct {
	Items []framework `xml:"Item"`
}

func (l frameworkList) MarshalJSON() ([]byte, error) {
	if l.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.Items)
}

type framework struct {
	Name           string   `xml:"Name" json:"Name"`
	PathComponents itemList `xml:"PathComponents" json:"PathComponents"`
	Resources      string   `xml:"Resources,omitempty" json:"Resources,omitempty"`
}

func (d *Descriptor) document() document {
	doc := document{
		Frameworks:      itemList{Items: d.Frameworks},
		WeakFrameworks:  itemList{Items: d.WeakFrameworks},
		SystemLibraries: itemList{Items: d.SystemLibraries},
	}
	for _, r := range d.Libraries {
		doc.Libraries.Items = append(doc.Libraries.Items, r.PathString())
	}
	for _, r := range d.BuildRules {
		doc.BuildRules.Items = append(doc.BuildRules.Items, framework{
			Name:           r.Name,
			PathComponents: itemList{Items: r.Path},
			Resources:      r.Resources,
		})
	}
	return doc
}
