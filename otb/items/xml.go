package itemsotb

import (
	"encoding/xml"
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// fluidDescriptionsStart is the first id items.xml uses for fluid
// descriptions rather than items.
const fluidDescriptionsStart = 20000

type xmlItems struct {
	Item []*xmlItem `xml:"item"`
}

type xmlItem struct {
	ID        uint16         `xml:"id,attr,omitempty"`
	FromID    uint16         `xml:"fromid,attr,omitempty"`
	ToID      uint16         `xml:"toid,attr,omitempty"`
	Name      string         `xml:"name,attr,omitempty"`
	Article   string         `xml:"article,attr,omitempty"`
	Attribute []xmlAttribute `xml:"attribute,omitempty"`

	Attributes map[string][]string `xml:"-"`
}

type xmlAttribute struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

// AddXMLInfo attaches names, articles and descriptions from an items.xml
// file. Entries may name a single server id or a fromid..toid range; server
// ids the file does not have are logged and skipped.
func (items *Items) AddXMLInfo(r io.Reader) error {
	var parsed xmlItems
	if err := xml.NewDecoder(r).Decode(&parsed); err != nil {
		return errors.Wrap(err, "itemsotb: items.xml")
	}
	attached := 0
	for _, it := range parsed.Item {
		it.Attributes = make(map[string][]string)
		for _, attr := range it.Attribute {
			it.Attributes[attr.Key] = append(it.Attributes[attr.Key], attr.Value)
		}

		from, to := it.ID, it.ID
		if it.ID == 0 {
			from, to = it.FromID, it.ToID
		}
		for id := int(from); id <= int(to) && id < fluidDescriptionsStart; id++ {
			item, err := items.ItemByServerID(uint16(id))
			if err != nil {
				glog.V(2).Infof("itemsotb: items.xml names server id %d, which is not in items.otb", id)
				continue
			}
			item.xml = it
			attached++
		}
	}
	glog.V(2).Infof("itemsotb: attached items.xml info to %d items", attached)
	return nil
}
