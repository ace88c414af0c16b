package models

import (
	"regexp"
	"strings"
)

// Location is one row of the postal table. Field names follow the
// imported dataset's column names.
type Location struct {
	OfficeName        string `bson:"officename" json:"officename"`
	Pincode           int    `bson:"pincode" json:"pincode"`
	Taluk             string `bson:"Taluk" json:"Taluk"`
	DistrictName      string `bson:"Districtname" json:"Districtname"`
	StateName         string `bson:"statename" json:"statename"`
	RelatedSuboffice  string `bson:"RelatedSuboffice" json:"RelatedSuboffice"`
	RelatedHeadoffice string `bson:"RelatedHeadoffice" json:"RelatedHeadoffice"`
}

type Village struct {
	Village string `json:"village"`
	Pincode int    `json:"pincode"`
}

type PincodeInfo struct {
	State    string `json:"state"`
	District string `json:"district"`
	Taluko   string `json:"taluko"`
	Village  string `json:"village"`
	Pincode  int    `json:"pincode"`
}

var officeSuffix = regexp.MustCompile(`(?i)\s*(B\.O|S\.O|H\.O)$`)

// VillageName strips the branch/sub/head office suffix from a post office name.
func VillageName(officeName string) string {
	return strings.TrimSpace(officeSuffix.ReplaceAllString(officeName, ""))
}
