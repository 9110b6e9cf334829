package importer

import (
	"log"

	"cosaflow/internal/util"
)

// resolveParam maps a free-text column name to its canonical parameter id:
// exact match first, then a case-and-space-insensitive scan over all
// parameters. Hits and misses are both cached for the run; an unmapped column
// is not an error, its value is simply dropped.
func (im *Importer) resolveParam(name string) (*int64, error) {
	if cached, ok := im.paramCache[name]; ok {
		return cached, nil
	}

	id, err := im.db.FindParamIDByName(name)
	if err != nil {
		return nil, err
	}
	if id == nil {
		params, err := im.db.ListParams()
		if err != nil {
			return nil, err
		}
		normalized := util.NormalizeParamName(name)
		for _, p := range params {
			if util.NormalizeParamName(p.Name) == normalized {
				pid := p.ID
				id = &pid
				break
			}
		}
	}

	if id == nil {
		log.Printf("debug: no parameter mapped for column %q", name)
	}
	im.paramCache[name] = id
	return id, nil
}
