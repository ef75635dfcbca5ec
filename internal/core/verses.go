package core

// Verse is one entry in the Sabbath message pool.
type Verse struct {
	Reference string
	Text      string
}

var verses = []Verse{
	{"Genesis 2:3", "And God blessed the seventh day, and sanctified it."},
	{"Exodus 20:8", "Remember the sabbath day, to keep it holy."},
	{"Exodus 31:13", "Verily my sabbaths ye shall keep: for it is a sign between me and you."},
	{"Leviticus 23:3", "The seventh day is the sabbath of rest, an holy convocation."},
	{"Deuteronomy 5:12", "Keep the sabbath day to sanctify it."},
	{"Isaiah 58:13", "Call the sabbath a delight, the holy of the LORD, honourable."},
	{"Ezekiel 20:12", "Moreover also I gave them my sabbaths, to be a sign between me and them."},
	{"Mark 2:27", "The sabbath was made for man, and not man for the sabbath."},
	{"Luke 4:16", "And, as his custom was, he went into the synagogue on the sabbath day."},
	{"Hebrews 4:9", "There remaineth therefore a rest to the people of God."},
	{"Psalm 92:1", "It is a good thing to give thanks unto the LORD."},
	{"Matthew 11:28", "Come unto me, all ye that labour and are heavy laden, and I will give you rest."},
}

// PickVerse returns the first verse in the pool the account has not
// seen inside its recent window. Deterministic on purpose: scheduling
// is already timing-dependent and the tests pin reply bodies.
func PickVerse(a *Account) Verse {
	for _, v := range verses {
		if !a.RecentlySent(v.Reference) {
			return v
		}
	}
	return verses[0]
}
