package i18n

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/shopkeeper/resources"
)

const translationsPath = "i18n/translations.yml"

var state = struct {
	once         sync.Once
	translations map[string]map[string]string
}{}

func load() {
	content, err := resources.FS.ReadFile(translationsPath)
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load i18n")
		return
	}
	dict := map[string]map[string]string{}
	if err := yaml.Unmarshal(content, &dict); err != nil {
		log.WithField("error", err.Error()).Error("cant unmarshal i18n")
		return
	}
	state.translations = dict
}

// Get returns the translation of key for lang. Keys are the English texts,
// so "en" and unknown keys fall back to the key itself.
func Get(key, lang string) string {
	lang = strings.ToUpper(strings.TrimSpace(lang))
	if lang == "" || lang == "EN" {
		return key
	}
	state.once.Do(load)
	if res, ok := state.translations[key][lang]; ok && res != "" {
		return res
	}
	log.WithField("object", "i18n").Tracef(`no translation for key "%s"`, key)
	return key
}
