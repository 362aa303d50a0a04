package model

import "time"

// Protocol is the proxy protocol a config link speaks.
type Protocol string

const (
	VLESS       Protocol = "VLESS"
	VMess       Protocol = "VMESS"
	Trojan      Protocol = "TROJAN"
	Shadowsocks Protocol = "SHADOWSOCKS"
	MTProto     Protocol = "MTPROTO"
)

// Quality is the coarse tier derived from a scraped ping value.
type Quality string

const (
	QualityGreen   Quality = "GREEN"
	QualityYellow  Quality = "YELLOW"
	QualityRed     Quality = "RED"
	QualityUnknown Quality = "UNKNOWN"
)

// Glyph returns the colored circle used when rendering the tier in posts.
func (q Quality) Glyph() string {
	switch q {
	case QualityGreen:
		return "🟢"
	case QualityYellow:
		return "🟡"
	case QualityRed:
		return "🔴"
	default:
		return "⚪️"
	}
}

// ConfigRecord is one discovered proxy link. Fingerprint is the dedup key;
// a record without a MessageId is pending distribution.
type ConfigRecord struct {
	Id             int      `gorm:"primaryKey;autoIncrement"`
	Fingerprint    string   `gorm:"size:50;uniqueIndex;not null"`
	Protocol       Protocol `gorm:"type:varchar(20);not null"`
	Link           string   `gorm:"type:text;not null"`
	OriginalLink   string   `gorm:"type:text"`
	OriginalRemark string   `gorm:"size:255"`
	Server         string   `gorm:"size:255"`
	Port           uint16
	Location       string  `gorm:"size:100"`
	Ping           string  `gorm:"size:20"`
	Quality        Quality `gorm:"type:varchar(10);default:'UNKNOWN'"`
	Source         string  `gorm:"size:255"`
	ChannelId      string  `gorm:"size:64"`
	MessageId      *int
	BadReports     uint `gorm:"default:0"`
	CopyCount      uint `gorm:"default:0"`
	CreatedAt      time.Time
	SentAt         *time.Time
}

func (ConfigRecord) TableName() string {
	return "configs"
}

// Pending reports whether the record has not been delivered yet.
func (c *ConfigRecord) Pending() bool {
	return c.MessageId == nil
}

type Setting struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"size:255;not null"`
}

func (Setting) TableName() string {
	return "settings"
}

// DailyStat aggregates deliveries per calendar date. Locations holds a
// JSON-encoded location→count histogram.
type DailyStat struct {
	Date       string `gorm:"primaryKey;size:10"`
	Count      int    `gorm:"default:0"`
	Locations  string `gorm:"type:text"`
	CopyCount  int    `gorm:"default:0"`
	BadReports int    `gorm:"default:0"`
}

func (DailyStat) TableName() string {
	return "daily_stats"
}

type Channel struct {
	Id          int    `gorm:"primaryKey;autoIncrement"`
	ChannelId   string `gorm:"size:64;uniqueIndex;not null"`
	ChannelName string `gorm:"size:255"`
	AddedAt     time.Time
}

func (Channel) TableName() string {
	return "channels"
}
