package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	piiToken    = regexp.MustCompile(`[\p{L}][\p{L}'’-]*|[.!?:;\n]`)
	spaceRun    = regexp.MustCompile(`[ \t]{2,}`)
	spaceBefore = regexp.MustCompile(` +([,.;:!?])`)
	emptyParens = regexp.MustCompile(`\(\s*\)`)
)

// Titles and relationship words that introduce a name but are not one.
var nameCues = map[string]struct{}{
	"nome": {}, "paciente": {}, "sr": {}, "sra": {}, "dr": {}, "dra": {},
	"responsável": {}, "mãe": {}, "pai": {}, "genitor": {}, "genitora": {},
	"filho": {}, "filha": {}, "aluno": {}, "aluna": {}, "menor": {}, "criança": {},
	"médico": {}, "médica": {}, "neuropediatra": {}, "psicóloga": {}, "psicólogo": {},
}

var nameConnectors = map[string]struct{}{
	"de": {}, "da": {}, "do": {}, "dos": {}, "das": {}, "e": {},
}

// Common words that open sentences or headers in reports.
var commonWords = map[string]struct{}{
	"a": {}, "o": {}, "as": {}, "os": {}, "um": {}, "uma": {}, "ao": {}, "aos": {}, "à": {}, "às": {},
	"no": {}, "na": {}, "nos": {}, "nas": {}, "em": {}, "com": {}, "para": {}, "por": {}, "pelo": {}, "pela": {},
	"que": {}, "se": {}, "sem": {}, "mas": {}, "porém": {}, "contudo": {}, "assim": {}, "portanto": {},
	"após": {}, "durante": {}, "desde": {}, "até": {}, "quanto": {}, "sobre": {}, "entre": {},
	"este": {}, "esta": {}, "esse": {}, "essa": {}, "isso": {}, "isto": {}, "ele": {}, "ela": {},
	"eles": {}, "elas": {}, "seu": {}, "sua": {}, "seus": {}, "suas": {}, "meu": {}, "minha": {},
	"é": {}, "são": {}, "foi": {}, "está": {}, "estão": {}, "há": {}, "tem": {}, "têm": {}, "possui": {},
	"apresenta": {}, "apresentou": {}, "faz": {}, "fez": {}, "realiza": {}, "realizou": {},
	"necessita": {}, "precisa": {}, "segue": {}, "refere": {}, "relata": {}, "atendido": {}, "atendida": {},
	"acompanhado": {}, "acompanhada": {}, "encaminhado": {}, "encaminhada": {},
	"recomenda": {}, "recomendo": {}, "recomendamos": {}, "sugere": {}, "sugiro": {}, "solicito": {},
	"declaro": {}, "atesto": {}, "também": {}, "ainda": {}, "atualmente": {}, "sim": {}, "não": {},
	"nenhum": {}, "nenhuma": {}, "data": {}, "conclusão": {}, "hipótese": {}, "histórico": {},
	"exame": {}, "exames": {}, "avaliação": {}, "conduta": {}, "tratamento": {}, "acompanhamento": {},
	"identificação": {}, "queixa": {}, "principal": {}, "anamnese": {}, "medicação": {}, "uso": {},
	"obs": {}, "nota": {}, "dados": {}, "atestado": {}, "médico": {}, "menino": {}, "menina": {},
	"neurológico": {}, "neurologia": {}, "pediatria": {}, "pediatra": {}, "psiquiatria": {},
}

// Capitalised clinical and institutional words that are never treated as names.
var piiAllowlist = map[string]struct{}{
	"tea": {}, "tdah": {}, "transtorno": {}, "espectro": {}, "autista": {}, "autismo": {},
	"síndrome": {}, "down": {}, "paralisia": {}, "cerebral": {}, "deficiência": {},
	"intelectual": {}, "global": {}, "desenvolvimento": {}, "atraso": {}, "fala": {},
	"escola": {}, "municipal": {}, "estadual": {}, "federal": {}, "pública": {}, "particular": {},
	"hospital": {}, "clínica": {}, "centro": {}, "apae": {}, "caps": {}, "sus": {}, "inss": {},
	"brasil": {}, "nível": {}, "grau": {}, "suporte": {}, "cid": {}, "dsm": {},
	"laudo": {}, "relatório": {}, "diagnóstico": {}, "observações": {}, "idade": {}, "anos": {},
	"fonoaudiologia": {}, "terapia": {}, "ocupacional": {}, "aba": {}, "psicologia": {},
	"janeiro": {}, "fevereiro": {}, "março": {}, "abril": {}, "maio": {}, "junho": {},
	"julho": {}, "agosto": {}, "setembro": {}, "outubro": {}, "novembro": {}, "dezembro": {},
}

// piiScrubber removes from model output the capitalised tokens of the source
// text that are not known clinical, catalog or common words.
type piiScrubber struct {
	names map[string]struct{}
}

func newPIIScrubber(source string, vocabulary map[string]struct{}) piiScrubber {
	s := piiScrubber{names: map[string]struct{}{}}
	for _, tok := range piiToken.FindAllString(source, -1) {
		if isBoundary(tok) || !startsUpper(tok) {
			continue
		}
		s.add(strings.ToLower(tok), vocabulary)
	}
	return s
}

func (s piiScrubber) add(lower string, vocabulary map[string]struct{}) {
	if utf8.RuneCountInString(lower) < 2 {
		return
	}
	if _, ok := piiAllowlist[lower]; ok {
		return
	}
	if _, ok := vocabulary[lower]; ok {
		return
	}
	if _, ok := nameConnectors[lower]; ok {
		return
	}
	if _, ok := nameCues[lower]; ok {
		return
	}
	if _, ok := commonWords[lower]; ok {
		return
	}
	s.names[lower] = struct{}{}
}

// Clean drops every token of text that matches a source name in any case, plus
// connectors left between two dropped names.
func (s piiScrubber) Clean(text string) string {
	if text == "" || len(s.names) == 0 {
		return text
	}
	spans := piiToken.FindAllStringIndex(text, -1)
	drop := make([]bool, len(spans))
	for i, sp := range spans {
		if _, ok := s.names[strings.ToLower(text[sp[0]:sp[1]])]; ok {
			drop[i] = true
		}
	}
	for i := 1; i+1 < len(spans); i++ {
		if _, ok := nameConnectors[strings.ToLower(text[spans[i][0]:spans[i][1]])]; ok && drop[i-1] && drop[i+1] {
			drop[i] = true
		}
	}

	var b strings.Builder
	last := 0
	for i, sp := range spans {
		if !drop[i] {
			continue
		}
		b.WriteString(text[last:sp[0]])
		last = sp[1]
	}
	b.WriteString(text[last:])

	out := emptyParens.ReplaceAllString(b.String(), "")
	out = spaceRun.ReplaceAllString(out, " ")
	out = spaceBefore.ReplaceAllString(out, "$1")
	out = strings.TrimLeft(out, " ,;:")
	return strings.TrimSpace(out)
}

func isBoundary(tok string) bool {
	return len(tok) == 1 && strings.ContainsAny(tok, ".!?:;\n")
}

func startsUpper(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return unicode.IsUpper(r)
}
