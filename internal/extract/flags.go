package extract

// locationFlag maps a country name to its flag glyph. Lookup is ordered
// substring containment: the first entry whose name appears in the context
// window wins, so localized names and full names must come before short
// codes ("United States" before "US", and "UK" before "US" is never hit by
// accident because codes sit at the tail of each group).
type locationFlag struct {
	Name string
	Flag string
}

var locationFlags = []locationFlag{
	{"آلمان", "🇩🇪"}, {"Germany", "🇩🇪"}, {"Deutschland", "🇩🇪"}, {"DE", "🇩🇪"},
	{"هلند", "🇳🇱"}, {"Netherlands", "🇳🇱"}, {"Holland", "🇳🇱"}, {"NL", "🇳🇱"},
	{"آمریکا", "🇺🇸"}, {"United States", "🇺🇸"}, {"America", "🇺🇸"}, {"USA", "🇺🇸"}, {"US", "🇺🇸"},
	{"انگلیس", "🇬🇧"}, {"United Kingdom", "🇬🇧"}, {"Britain", "🇬🇧"}, {"England", "🇬🇧"}, {"UK", "🇬🇧"},
	{"فرانسه", "🇫🇷"}, {"France", "🇫🇷"}, {"FR", "🇫🇷"},
	{"سنگاپور", "🇸🇬"}, {"Singapore", "🇸🇬"}, {"SG", "🇸🇬"},
	{"ژاپن", "🇯🇵"}, {"Japan", "🇯🇵"}, {"JP", "🇯🇵"},
	{"ایران", "🇮🇷"}, {"Tehran", "🇮🇷"}, {"Iran", "🇮🇷"}, {"IR", "🇮🇷"},
	{"ترکیه", "🇹🇷"}, {"Türkiye", "🇹🇷"}, {"Turkey", "🇹🇷"}, {"TR", "🇹🇷"},
	{"روسیه", "🇷🇺"}, {"Russia", "🇷🇺"}, {"RU", "🇷🇺"},
	{"کانادا", "🇨🇦"}, {"Canada", "🇨🇦"}, {"CA", "🇨🇦"},
	{"استرالیا", "🇦🇺"}, {"Australia", "🇦🇺"}, {"AU", "🇦🇺"},
	{"هند", "🇮🇳"}, {"India", "🇮🇳"}, {"IN", "🇮🇳"},
	{"برزیل", "🇧🇷"}, {"Brazil", "🇧🇷"}, {"BR", "🇧🇷"},
	{"فنلاند", "🇫🇮"}, {"Finland", "🇫🇮"}, {"FI", "🇫🇮"},
	{"سوئد", "🇸🇪"}, {"Sweden", "🇸🇪"}, {"SE", "🇸🇪"},
	{"سوئیس", "🇨🇭"}, {"Switzerland", "🇨🇭"}, {"CH", "🇨🇭"},
	{"لهستان", "🇵🇱"}, {"Poland", "🇵🇱"}, {"PL", "🇵🇱"},
	{"اسپانیا", "🇪🇸"}, {"Spain", "🇪🇸"}, {"ES", "🇪🇸"},
	{"ایتالیا", "🇮🇹"}, {"Italy", "🇮🇹"}, {"IT", "🇮🇹"},
	{"اتریش", "🇦🇹"}, {"Austria", "🇦🇹"}, {"AT", "🇦🇹"},
	{"هنگ کنگ", "🇭🇰"}, {"Hong Kong", "🇭🇰"}, {"HK", "🇭🇰"},
	{"کره جنوبی", "🇰🇷"}, {"South Korea", "🇰🇷"}, {"Korea", "🇰🇷"}, {"KR", "🇰🇷"},
	{"امارات", "🇦🇪"}, {"Dubai", "🇦🇪"}, {"UAE", "🇦🇪"},
	{"کلودفلر", "☁️"}, {"Cloudflare", "☁️"},
}
