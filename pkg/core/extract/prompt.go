package extract

import "fmt"

// MaxChunkChars bounds how much of a chunk is embedded in the prompt, keeping
// the request under the model's input limit.
const MaxChunkChars = 35000

// promptTemplate is the extraction instruction sent with every chunk. It is
// written in the report's language and enumerates the seven output arrays
// with their exact field names and types; the model is asked for raw JSON.
const promptTemplate = `Você é um extrator de dados que transforma um relatório semanal de fertilizantes no Brasil em um JSON compatível com um banco relacional. Extraia **todas** as informações quantitativas possíveis.

---

O JSON deve conter as seguintes seções (listas de objetos), com os tipos exatos:

1. **produtos**:
  - nome_produto: string (ex: "Granular Urea", "MAP", "SSP", "DAP", "MOP", "TSP", "Amsul", "AN")
  - formulacao: string ou null (ex: "11-52", "00-18-18")
  - origem: string (ex: "Brasil", "China", "US", "Marrocos", etc.)
  - tipo: string (ex: "Ureia", "MAP", "NPK", "DAP", "SSP", "TSP", "Amsul", "AN")
  - unidade: string ("USD/t" ou "BRL/t")

2. **locais**:
  - nome: string
  - estado: string ou null (ex: "SP", "MT", "GO")
  - pais: string
  - tipo: string ("porto", "cidade", "estado", "pais")

3. **precos**:
  - produto: objeto (igual ao tipo produtos)
  - local: objeto (igual ao tipo locais)
  - data: string (ex: "2024-01-11")
  - tipo_preco: string (ex: "FOB", "CIF", "EXW")
  - modalidade: string ("Spot", "Contrato", "Indicativo")
  - fonte: string ("relatorio")
  - moeda: string ("USD" ou "BRL")
  - preco_min: float
  - preco_max: float
  - variacao: float ou null (estimado se possível)
  - simbolo_var: string ("▲", "▼", "=")

4. **fretes**:
  - tipo: string ("rodoviário" ou "marítimo"). Inclua fretes marítimos spot internacionais (ex: China, Egito, Marrocos → Brasil)
  - origem: objeto (tipo locais)
  - destino: objeto (tipo locais)
  - data: string ("YYYY-MM-DD")
  - custo_usd: float ou null
  - custo_brl: float ou null

5. **barter_ratios**:
  - cultura: string. Inclua **todas** as culturas presentes no relatório: Soja, Milho, Algodão, Arroz, Café, Cana-de-açúcar
  - produto: objeto (tipo produtos)
  - estado: string
  - data: string
  - preco_cultura: float
  - barter_ratio: float
  - barter_index: float ou null

6. **cambio**:
  - data: string (ex: "2024-01-11")
  - usd_brl: float

7. **custos_portos**:
  - porto: string (ex: "Santos", "Paranagua", etc.)
  - data: string
  - armazenagem: float
  - demurrage: float
  - custo_total: float

---

Instruções:

- Extraia **todos os produtos fertilizantes** mencionados no relatório, mesmo que apenas uma vez. Isso inclui: Ureia, MAP, NPK, DAP, MOP, SSP, TSP, AN, Amsul. NÃO omita fertilizantes menos citados — mesmo se os dados forem parciais, inclua-os.

- Inclua **todas as culturas agrícolas** listadas nas seções de barter: Soja, Milho, Algodão, Café, Arroz, Cana-de-açúcar. Mesmo que estejam incompletas, não omita nenhuma cultura presente nas tabelas.

- Extraia tanto **fretes rodoviários quanto fretes marítimos spot**. Nos fretes marítimos, inclua rotas como: China → Brasil, Marrocos → Brasil, Egito → Brasil, EUA → Brasil. Inclua **pelo menos um frete marítimo**, mesmo que estimado.

- Inclua **todos os estados brasileiros** mencionados no relatório, especialmente nos pontos de distribuição e barter.

- Sempre que símbolos de variação (▲, ▼, =) aparecerem, preencha o campo variacao com valores aproximados: +5.0 para ▲, -5.0 para ▼ e 0.0 para =.

- Use "2024-01-11" como data padrão caso a data não esteja explicitamente informada.

---

Agora leia o relatório abaixo e retorne **apenas o JSON bruto** com essa estrutura:

"""
%s
"""
`

// BuildPrompt embeds a chunk of report text into the extraction instruction,
// truncating the chunk to MaxChunkChars first.
func BuildPrompt(chunk string) string {
	if len(chunk) > MaxChunkChars {
		chunk = chunk[:MaxChunkChars]
	}
	return fmt.Sprintf(promptTemplate, chunk)
}
