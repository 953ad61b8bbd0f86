package main

import (
	"github.com/golang/glog"

	"badc0de.net/pkg/tibia-assets/things"
)

func citemHandler(th *things.Things, idx int, fr, x, y, z int) bool {
	itm, err := th.ItemWithClientID(uint16(idx))
	if err != nil {
		glog.Errorf("item with client id %d: %v", idx, err)
		return false
	}
	return printItem(itm, fr, x, y, z)
}

func itemHandler(th *things.Things, idx int) bool {
	itm, err := th.Item(uint16(idx))
	if err != nil {
		glog.Errorf("item with server id %d: %v", idx, err)
		return false
	}
	return printItem(itm, *frame, 0, 0, 0)
}

func printItem(itm *things.Item, fr, x, y, z int) bool {
	img, err := itm.ItemFrame(fr, x, y, z)
	if err != nil {
		glog.Errorf("compositing item %d: %v", itm.ClientID(), err)
		return false
	}
	if name := itm.Name(); name != "" {
		glog.Infof("item %d (server id %d): %s", itm.ClientID(), itm.ServerID(), name)
	}
	return out(img)
}
