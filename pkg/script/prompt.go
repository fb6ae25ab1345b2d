package script

import (
	"fmt"
	"strings"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
)

// OpeningLine is the fixed first dialogue line of every episode.
const OpeningLine = domain.SpeakerOneTag + " ¡Qué tal, comunidad emprendedora! Bienvenidos a un nuevo episodio de Startups y Café."

// FarewellExample anchors the closing line.
const FarewellExample = domain.SpeakerTwoTag + " Gracias por acompañarnos. ¡Nos escuchamos en el próximo episodio con más del mundo de la innovación!"

const scriptPromptHeader = `
Eres el guionista de "Startups y Café", un micro-podcast.
El objetivo es informar y motivar a emprendedores universitarios y de la comunidad de Chihuahua.
Escribe una charla natural entre dos anfitriones: Alex (entusiasta, visionario y es Speaker 1) y Eva (analítica, pragmática y es Speaker 2).
El tono debe ser informativo, accesible, y motivador, usando lenguaje claro y evitando jerga excesivamente técnica.

Reglas ESTRICTAS de formato de salida:
- La salida debe contener únicamente líneas que comiencen con “Speaker 1:” o “Speaker 2:”. No incluyas ningún otro texto.
- La primera línea debe ser exactamente:
Charla natural entre dos anfitriones: Alex (entusiasta, visionario y es Speaker 1) y Eva (analítica, pragmática y es Speaker 2).
El tono debe ser informativo, accesible, y motivador, usando lenguaje claro y evitando jerga excesivamente técnica.
%s
- No uses acotaciones, efectos de sonido, notas, encabezados, emojis o cualquier texto que no sea parte del diálogo.
- La última línea debe ser una despedida clara, por ejemplo:
%s

Aquí están las noticias de esta semana para discutir (título + resumen):
`

// BuildScriptPrompt returns the dialogue instruction for the given items.
// The result depends only on the items, in order.
func BuildScriptPrompt(items []domain.EnrichedItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, scriptPromptHeader, OpeningLine, FarewellExample)

	blocks := make([]string, 0, len(items))
	for i, item := range items {
		blocks = append(blocks, fmt.Sprintf("[%d] %s\n%s", i+1, item.Title, item.Body))
	}
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n")
	return b.String()
}

const metadataPrompt = `Tarea Principal
Lee el siguiente guion de podcast y, basándote únicamente en su contenido, genera un título y una descripción.

Requisitos de Formato de Salida:
1.  JSON Válido y Exclusivo: Tu respuesta debe ser ÚNICAMENTE un objeto JSON válido. No incluyas absolutamente ningún texto antes o después del JSON, ni explicaciones, ni introducciones.
2.  Sin Markdown: No uses el formato de bloque de código ` + "```json" + `. La respuesta debe empezar directamente con el carácter { y terminar con el carácter }.
3.  Claves Específicas: El objeto JSON debe contener exactamente dos claves: titulo y descripcion.

Requisitos de Contenido:
1.  Título: Un título corto, atractivo y orientado al marketing (máximo 8 palabras).
2.  Descripción: Un resumen conciso del episodio en una sola oración y en tercera persona.

Ejemplo:
Guion de entrada:
"(Intro musical) Bienvenidos a 'Negocios del Futuro'. Hoy exploramos un tema fascinante: la eficiencia. En México, muchas empresas, desde startups hasta escuelas, enfrentan retos operativos. Hablaremos con un emprendedor que creó una solución FinTech para administrar pagos escolares, eliminando dolores de cabeza para los padres. También analizaremos cómo la inteligencia artificial ya no es ciencia ficción, sino una herramienta real para automatizar procesos y abrir puertas a modelos de negocio que antes eran impensables. Quédense para descubrir cómo la tecnología está resolviendo problemas reales y generando nuevas oportunidades."

Resultado esperado (JSON exacto):
{
    "titulo": "Eficiencia, IA y Nuevos Negocios",
    "descripcion": "Este episodio explora cómo la tecnología, desde la inteligencia artificial hasta las soluciones FinTech para escuelas, está creando nuevas oportunidades de negocio en México al enfocarse en la eficiencia y la resolución de problemas operativos."
}

Tu Guion a Procesar:
A continuación, genera el objeto JSON para el siguiente guion:

Guion:
`

// BuildMetadataPrompt returns the title/description instruction for a script.
func BuildMetadataPrompt(script string) string {
	return metadataPrompt + script
}
