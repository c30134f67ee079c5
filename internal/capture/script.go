// File: internal/capture/script.go
package capture

// The collection scripts run inside the page via Runtime.evaluate and
// return plain JSON. Geometry is reported exactly as the layout engine
// measured it (viewport coordinates, computed transform strings); nothing
// here rounds or converts, that is the coordinate engine's job.

// collectScript walks the rendered DOM and lifts out per-element geometry,
// computed styles and content references. Children of an svg root are left
// inside its serialized markup rather than visited individually.
const collectScript = `(() => {
	const SKIP_TAGS = {SCRIPT: 1, STYLE: 1, NOSCRIPT: 1, TEMPLATE: 1, META: 1, LINK: 1, HEAD: 1};
	const STYLE_KEYS = [
		'background-color', 'color', 'font-family', 'font-size', 'font-weight',
		'line-height', 'letter-spacing', 'text-align', 'border-radius', 'border',
		'box-shadow', 'opacity', 'display', 'position', 'overflow', 'z-index',
		'padding', 'margin',
	];
	const MAX_TEXT = 2000;
	const MAX_SVG = 1048576;
	const elements = [];

	const cssPath = (el) => {
		const parts = [];
		let cur = el;
		while (cur && cur.nodeType === 1 && parts.length < 6) {
			let part = cur.tagName.toLowerCase();
			if (cur.id) {
				parts.unshift(part + '#' + cur.id);
				break;
			}
			const cls = (cur.className && typeof cur.className === 'string')
				? cur.className.trim().split(/\s+/)[0] : '';
			if (cls) part += '.' + cls;
			const parent = cur.parentElement;
			if (parent) {
				const idx = Array.prototype.indexOf.call(parent.children, cur);
				part += ':nth-child(' + (idx + 1) + ')';
			}
			parts.unshift(part);
			cur = cur.parentElement;
		}
		return parts.join(' > ');
	};

	const directText = (el) => {
		let text = '';
		for (const child of el.childNodes) {
			if (child.nodeType === 3) text += child.textContent;
		}
		return text.trim().slice(0, MAX_TEXT);
	};

	const visit = (el, parentIndex) => {
		if (SKIP_TAGS[el.tagName]) return;
		const rect = el.getBoundingClientRect();
		const cs = getComputedStyle(el);
		const visible = rect.width > 0 && rect.height > 0 &&
			cs.display !== 'none' && cs.visibility !== 'hidden' &&
			parseFloat(cs.opacity) > 0;

		const styles = {};
		for (const key of STYLE_KEYS) {
			const value = cs.getPropertyValue(key);
			if (value) styles[key] = value;
		}

		const index = elements.length;
		const entry = {
			index: index,
			parentIndex: parentIndex,
			selector: cssPath(el),
			tagName: el.tagName.toLowerCase(),
			rect: {
				left: rect.left, top: rect.top,
				right: rect.right, bottom: rect.bottom,
				width: rect.width, height: rect.height,
			},
			transform: cs.transform === 'none' ? '' : cs.transform,
			styles: styles,
			text: directText(el),
			visible: visible,
		};
		if (el.tagName === 'IMG' && el.currentSrc) entry.imageUrl = el.currentSrc;
		if (el.tagName === 'svg') entry.svgMarkup = el.outerHTML.slice(0, MAX_SVG);
		elements.push(entry);

		if (el.tagName === 'svg') return;
		for (const child of el.children) visit(child, index);
	};

	if (document.body) visit(document.body, -1);
	return {elements: elements};
})()`

// metricsScript reads page-level quantities that only the page itself
// knows: the device pixel ratio and the custom properties declared on the
// root element.
const metricsScript = `(() => {
	const vars = {};
	try {
		const cs = getComputedStyle(document.documentElement);
		for (let i = 0; i < cs.length; i++) {
			const name = cs.item(i);
			if (name && name.indexOf('--') === 0) {
				vars[name] = cs.getPropertyValue(name).trim();
			}
		}
	} catch (e) {
		// Cross-origin stylesheets can make style enumeration throw.
	}
	return {
		devicePixelRatio: window.devicePixelRatio || 1,
		cssVariables: vars,
	};
})()`

// settleScript probes layout stability. The page counts as settled when
// consecutive probes agree and nothing is still loading.
const settleScript = `(() => {
	let pending = 0;
	for (const img of document.querySelectorAll('img')) {
		if (!img.complete) pending++;
	}
	return {
		readyState: document.readyState,
		scrollHeight: document.documentElement ? document.documentElement.scrollHeight : 0,
		pendingImages: pending,
		fontsLoaded: !document.fonts || document.fonts.status === 'loaded',
	};
})()`
